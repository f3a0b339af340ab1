package model

import (
	"time"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/usage"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Conversation struct {
	Id            uuid.UUID                          `gorm:"type:uuid;primaryKey"`
	AssignmentId  uuid.UUID                          `gorm:"type:uuid;not null;index"`
	UserId        uuid.UUID                          `gorm:"type:uuid;not null;index"`
	State         string                             `gorm:"type:varchar(32);not null;index"`
	DialogueState datatypes.JSONType[dialogue.State] `gorm:"not null"`
	TokenUsage    datatypes.JSONType[usage.Report]   `gorm:"not null"`
	// Version is bumped on every append and guards concurrent writers.
	Version      int64     `gorm:"not null;default:0"`
	LastActionAt time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string {
	return "conversations"
}

type Turn struct {
	Id             uuid.UUID                         `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID                         `gorm:"type:uuid;not null;uniqueIndex:idx_turn_seq,priority:1"`
	Seq            int                               `gorm:"not null;uniqueIndex:idx_turn_seq,priority:2"`
	Role           string                            `gorm:"type:varchar(16);not null"`
	Type           string                            `gorm:"type:varchar(32);not null"`
	Text           string                            `gorm:"type:text;not null"`
	Analysis       datatypes.JSONType[*TurnAnalysis]
	TokenUsage     datatypes.JSONType[*usage.Report]
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TurnAnalysis is the stance snapshot stored next to a turn.
type TurnAnalysis struct {
	Stage     string                     `json:"stage"`
	Stance    *dialogue.StanceVersion    `json:"stance,omitempty"`
	Principle *dialogue.PrincipleVersion `json:"principle,omitempty"`
}

func (Turn) TableName() string {
	return "conversation_turns"
}
