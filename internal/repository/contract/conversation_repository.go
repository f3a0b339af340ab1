package contract

import (
	"context"
	"time"

	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/repository/specification"
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/usage"

	"github.com/google/uuid"
)

// AppendTurnsInput is one guarded write of a completed exchange.
type AppendTurnsInput struct {
	ConversationId uuid.UUID
	UserId         uuid.UUID
	// ExpectedVersion is the version the caller read. The write fails with
	// apperror.ErrStaleState when another writer got there first.
	ExpectedVersion int64
	Turns           []*entity.Turn
	DialogueState   dialogue.State
	Ended           bool
	Usage           usage.Report
	At              time.Time
}

type ConversationRepository interface {
	// Create inserts the conversation unless one with the same id exists.
	// It reports whether this call created the row.
	Create(ctx context.Context, conversation *entity.Conversation) (bool, error)
	// Reset replaces the dialogue state of a closed conversation for a resubmission.
	Reset(ctx context.Context, conversation *entity.Conversation) error
	AppendTurns(ctx context.Context, input AppendTurnsInput) (*entity.Conversation, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
	FindTurns(ctx context.Context, conversationId uuid.UUID) ([]*entity.Turn, error)
}
