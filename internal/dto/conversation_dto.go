package dto

import (
	"time"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/usage"

	"github.com/google/uuid"
)

type StartConversationRequest struct {
	AssignmentId uuid.UUID `json:"assignmentId" validate:"required"`
}

type StartConversationResponse struct {
	ConversationId uuid.UUID `json:"conversationId"`
	State          string    `json:"state"`
	Stage          string    `json:"stage"`
	Version        int64     `json:"version"`
	Created        bool      `json:"created"`
	Reset          bool      `json:"reset"`
}

// SubmitTurnRequest carries either text or base64 audio with its mime type.
type SubmitTurnRequest struct {
	Text     string `json:"text" validate:"required_without=Audio,max=8000"`
	Audio    []byte `json:"audio,omitempty" validate:"required_without=Text"`
	MimeType string `json:"mimeType,omitempty" validate:"required_with=Audio"`
}

type TokenUsageResponse struct {
	ByFeature map[string]usage.Totals `json:"byFeature"`
	Totals    usage.Totals            `json:"totals"`
	Models    map[string]string       `json:"models"`
}

type SubmitTurnResponse struct {
	Text              string                     `json:"text"`
	Transcript        string                     `json:"transcript,omitempty"`
	Audio             []byte                     `json:"audio"`
	AudioMimeType     string                     `json:"audioMimeType"`
	ConversationId    uuid.UUID                  `json:"conversationId"`
	UserTurnId        uuid.UUID                  `json:"userTurnId"`
	AiTurnId          uuid.UUID                  `json:"aiTurnId"`
	ConversationEnded bool                       `json:"conversationEnded"`
	State             string                     `json:"state"`
	Stage             string                     `json:"stage"`
	Version           int64                      `json:"version"`
	Stance            *dialogue.StanceVersion    `json:"stance"`
	Principle         *dialogue.PrincipleVersion `json:"principle"`
	Summary           *string                    `json:"summary,omitempty"`
	Late              bool                       `json:"late,omitempty"`
	TokenUsage        TokenUsageResponse         `json:"tokenUsage"`
}

type TurnResponse struct {
	Id         uuid.UUID               `json:"id"`
	Seq        int                     `json:"seq"`
	Role       string                  `json:"role"`
	Type       string                  `json:"type"`
	Text       string                  `json:"text"`
	Stance     *dialogue.StanceVersion `json:"stance,omitempty"`
	TokenUsage *usage.Report           `json:"tokenUsage,omitempty"`
	CreatedAt  time.Time               `json:"createdAt"`
}

type GetConversationResponse struct {
	Id                  uuid.UUID                  `json:"id"`
	AssignmentId        uuid.UUID                  `json:"assignmentId"`
	State               string                     `json:"state"`
	Stage               string                     `json:"stage"`
	Version             int64                      `json:"version"`
	Topic               string                     `json:"topic"`
	Stance              *dialogue.StanceVersion    `json:"stance"`
	Principle           *dialogue.PrincipleVersion `json:"principle"`
	Summary             *string                    `json:"summary,omitempty"`
	DiscussionSatisfied *bool                      `json:"discussionSatisfied,omitempty"`
	TokenUsage          usage.Report               `json:"tokenUsage"`
	Turns               []*TurnResponse            `json:"turns"`
	LastActionAt        time.Time                  `json:"lastActionAt"`
	CreatedAt           time.Time                  `json:"createdAt"`
}

// TurnRecordedMessage is published on the in-process bus after a turn commits.
type TurnRecordedMessage struct {
	ConversationId uuid.UUID    `json:"conversationId"`
	AssignmentId   uuid.UUID    `json:"assignmentId"`
	UserId         uuid.UUID    `json:"userId"`
	Stage          string       `json:"stage"`
	Ended          bool         `json:"ended"`
	Finalized      bool         `json:"finalized"`
	Late           bool         `json:"late"`
	Usage          usage.Report `json:"usage"`
	RecordedAt     time.Time    `json:"recordedAt"`
}
