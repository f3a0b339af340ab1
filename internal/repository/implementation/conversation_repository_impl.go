package implementation

import (
	"context"
	"errors"
	"fmt"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/mapper"
	"socratic-tutor-be/internal/model"
	"socratic-tutor-be/internal/repository/contract"
	"socratic-tutor-be/internal/repository/specification"
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/usage"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewConversationRepository(db *gorm.DB) contract.ConversationRepository {
	return &ConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *ConversationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConversationRepositoryImpl) Create(ctx context.Context, conversation *entity.Conversation) (bool, error) {
	m := r.mapper.ConversationToModel(conversation)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ConversationRepositoryImpl) Reset(ctx context.Context, conversation *entity.Conversation) error {
	res := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND version = ?", conversation.Id, conversation.Version).
		Updates(map[string]interface{}{
			"state":          conversation.State,
			"dialogue_state": datatypes.NewJSONType(conversation.DialogueState),
			"token_usage":    datatypes.NewJSONType(conversation.TokenUsage),
			"version":        gorm.Expr("version + 1"),
			"last_action_at": conversation.LastActionAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrStaleState
	}
	conversation.Version++
	return nil
}

// AppendTurns re-checks existence, ownership, state and version inside one
// transaction, then writes both turns and the new dialogue state.
func (r *ConversationRepositoryImpl) AppendTurns(ctx context.Context, input contract.AppendTurnsInput) (*entity.Conversation, error) {
	var out *entity.Conversation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", input.ConversationId).
			First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		if err != nil {
			return err
		}

		switch {
		case current.UserId != input.UserId:
			return apperror.ErrForbidden
		case current.State == dialogue.ConversationClosed:
			return fmt.Errorf("%w: conversation is closed", apperror.ErrInvalidState)
		case current.Version != input.ExpectedVersion:
			return apperror.ErrStaleState
		}

		merged := usage.Merge(current.TokenUsage.Data(), input.Usage)
		state := dialogue.ConversationStateFor(input.DialogueState.Stage, input.Ended)

		res := tx.Model(&model.Conversation{}).
			Where("id = ? AND version = ? AND state <> ?", input.ConversationId, input.ExpectedVersion, dialogue.ConversationClosed).
			Updates(map[string]interface{}{
				"state":          state,
				"dialogue_state": datatypes.NewJSONType(input.DialogueState),
				"token_usage":    datatypes.NewJSONType(merged),
				"version":        gorm.Expr("version + 1"),
				"last_action_at": input.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.ErrStaleState
		}

		var seq int64
		if err := tx.Model(&model.Turn{}).Where("conversation_id = ?", input.ConversationId).Count(&seq).Error; err != nil {
			return err
		}
		turns := make([]*model.Turn, len(input.Turns))
		for i, t := range input.Turns {
			t.ConversationId = input.ConversationId
			t.Seq = int(seq) + i + 1
			if t.Id == uuid.Nil {
				t.Id = uuid.New()
			}
			if t.CreatedAt.IsZero() {
				t.CreatedAt = input.At
			}
			turns[i] = r.mapper.TurnToModel(t)
		}
		if len(turns) > 0 {
			if err := tx.Create(&turns).Error; err != nil {
				return err
			}
		}

		current.State = state
		current.DialogueState = datatypes.NewJSONType(input.DialogueState)
		current.TokenUsage = datatypes.NewJSONType(merged)
		current.Version++
		current.LastActionAt = input.At
		out = r.mapper.ConversationToEntity(&current)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ConversationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	var m model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ConversationToEntity(&m), nil
}

func (r *ConversationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	var models []*model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Conversation, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ConversationToEntity(m)
	}
	return entities, nil
}

func (r *ConversationRepositoryImpl) FindTurns(ctx context.Context, conversationId uuid.UUID) ([]*entity.Turn, error) {
	var models []*model.Turn
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).Order("seq ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.TurnsToEntities(models), nil
}
