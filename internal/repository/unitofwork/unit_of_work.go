package unitofwork

import (
	"context"

	"socratic-tutor-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AssignmentRepository() contract.AssignmentRepository
	ConversationRepository() contract.ConversationRepository
	SubmissionRepository() contract.SubmissionRepository
}
