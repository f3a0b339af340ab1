package contract

import (
	"context"
	"time"

	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/repository/specification"

	"github.com/google/uuid"
)

type FinalizeSubmissionInput struct {
	AssignmentId   uuid.UUID
	UserId         uuid.UUID
	ConversationId uuid.UUID
	Late           bool
	At             time.Time
}

type SubmissionRepository interface {
	// EnsureOpen creates an in-progress submission if none exists.
	EnsureOpen(ctx context.Context, assignmentId, userId, conversationId uuid.UUID) error
	// Reopen moves a submitted submission back to in progress.
	Reopen(ctx context.Context, assignmentId, userId uuid.UUID) error
	// Finalize marks the submission submitted. A second call is a no-op and
	// reports false.
	Finalize(ctx context.Context, input FinalizeSubmissionInput) (bool, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Submission, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
