package model

import (
	"time"

	"github.com/google/uuid"
)

type Submission struct {
	Id             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	AssignmentId   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_submission_owner,priority:1"`
	UserId         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_submission_owner,priority:2"`
	ConversationId *uuid.UUID `gorm:"type:uuid;index"`
	Status         string     `gorm:"type:varchar(32);not null"`
	Late           bool       `gorm:"not null;default:false"`
	SubmittedAt    *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Submission) TableName() string {
	return "submissions"
}
