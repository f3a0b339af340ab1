package entity

import (
	"time"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/usage"

	"github.com/google/uuid"
)

type Conversation struct {
	Id            uuid.UUID
	AssignmentId  uuid.UUID
	UserId        uuid.UUID
	State         string
	DialogueState dialogue.State
	TokenUsage    usage.Report
	Version       int64
	Turns         []*Turn
	LastActionAt  time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func (c *Conversation) IsClosed() bool {
	return c.State == dialogue.ConversationClosed
}

type Turn struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Seq            int
	Role           string
	Type           string
	Text           string
	Analysis       *TurnAnalysis
	TokenUsage     *usage.Report
	CreatedAt      time.Time
}

type TurnAnalysis struct {
	Stage     string
	Stance    *dialogue.StanceVersion
	Principle *dialogue.PrincipleVersion
}
