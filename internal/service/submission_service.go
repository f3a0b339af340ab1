package service

import (
	"context"

	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/internal/repository/memory"
	"socratic-tutor-be/internal/repository/specification"
	"socratic-tutor-be/internal/repository/unitofwork"
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/events"
)

const defaultSweepBatch = 100

type ISubmissionService interface {
	// Finalize marks the submission of a closed conversation as submitted.
	// It reports whether this call changed anything.
	Finalize(ctx context.Context, conversation *entity.Conversation) (bool, error)
	// SweepClosed finalizes closed conversations whose submission is still
	// open, e.g. after a client dropped between commit and finalize.
	SweepClosed(ctx context.Context, limit int) (int, error)
}

type submissionService struct {
	uowFactory  unitofwork.RepositoryFactory
	assignments *assignmentLoader
	events      EventPublisher
	log         logger.ILogger
}

func NewSubmissionService(
	uowFactory unitofwork.RepositoryFactory,
	assignmentCache *memory.AssignmentCache,
	eventPublisher EventPublisher,
	log logger.ILogger,
) ISubmissionService {
	return &submissionService{
		uowFactory:  uowFactory,
		assignments: &assignmentLoader{cache: assignmentCache},
		events:      eventPublisher,
		log:         log,
	}
}

func (ss *submissionService) Finalize(ctx context.Context, conversation *entity.Conversation) (bool, error) {
	uow := ss.uowFactory.NewUnitOfWork(ctx)

	assignment, err := ss.assignments.load(ctx, uow, conversation.AssignmentId)
	if err != nil {
		return false, err
	}

	// Lateness is judged by when the dialogue actually ended.
	input := finalizeInput(conversation, assignment, conversation.LastActionAt)
	changed, err := uow.SubmissionRepository().Finalize(ctx, input)
	if err != nil {
		return false, err
	}

	if changed && ss.events != nil {
		ev := events.NewSubmissionFinalized(
			input.AssignmentId.String(),
			input.UserId.String(),
			input.ConversationId.String(),
			input.Late,
			input.At,
		)
		if err := ss.events.Publish(ctx, ev); err != nil {
			ss.log.Warn("SUBMISSION", "Failed to publish submission event", map[string]interface{}{"error": err.Error()})
		}
	}
	return changed, nil
}

func (ss *submissionService) SweepClosed(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultSweepBatch
	}
	uow := ss.uowFactory.NewUnitOfWork(ctx)

	pending, err := uow.ConversationRepository().FindAll(ctx,
		specification.ByState{State: dialogue.ConversationClosed},
		specification.PendingSubmission{},
		specification.OrderBy{Field: "last_action_at", Desc: false},
		specification.Limit{N: limit},
	)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, conv := range pending {
		if err := ctx.Err(); err != nil {
			return finalized, err
		}

		changed, err := ss.Finalize(ctx, conv)
		if err != nil {
			ss.log.Error("SUBMISSION", "Sweep failed to finalize", map[string]interface{}{
				"conversation_id": conv.Id.String(),
				"error":           err.Error(),
			})
			continue
		}
		if changed {
			finalized++
		}
	}

	if finalized > 0 {
		ss.log.Info("SUBMISSION", "Sweep finalized submissions", map[string]interface{}{"count": finalized})
	}
	return finalized, nil
}
