package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubmissionStatusInProgress = "in_progress"
	SubmissionStatusSubmitted  = "submitted"
)

type Submission struct {
	Id             uuid.UUID
	AssignmentId   uuid.UUID
	UserId         uuid.UUID
	ConversationId *uuid.UUID
	Status         string
	Late           bool
	SubmittedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
