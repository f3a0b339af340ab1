package implementation

import (
	"context"
	"errors"

	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/mapper"
	"socratic-tutor-be/internal/model"
	"socratic-tutor-be/internal/repository/contract"
	"socratic-tutor-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AssignmentMapper
}

func NewSubmissionRepository(db *gorm.DB) contract.SubmissionRepository {
	return &SubmissionRepositoryImpl{
		db:     db,
		mapper: mapper.NewAssignmentMapper(),
	}
}

func (r *SubmissionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SubmissionRepositoryImpl) EnsureOpen(ctx context.Context, assignmentId, userId, conversationId uuid.UUID) error {
	m := &model.Submission{
		Id:             uuid.New(),
		AssignmentId:   assignmentId,
		UserId:         userId,
		ConversationId: &conversationId,
		Status:         entity.SubmissionStatusInProgress,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(m).Error
}

func (r *SubmissionRepositoryImpl) Reopen(ctx context.Context, assignmentId, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Submission{}).
		Where("assignment_id = ? AND user_id = ?", assignmentId, userId).
		Updates(map[string]interface{}{
			"status":       entity.SubmissionStatusInProgress,
			"late":         false,
			"submitted_at": nil,
		}).Error
}

// Finalize only touches a submission that is not yet submitted, so repeating
// it keeps the first submittedAt.
func (r *SubmissionRepositoryImpl) Finalize(ctx context.Context, input contract.FinalizeSubmissionInput) (bool, error) {
	if err := r.EnsureOpen(ctx, input.AssignmentId, input.UserId, input.ConversationId); err != nil {
		return false, err
	}

	at := input.At
	res := r.db.WithContext(ctx).Model(&model.Submission{}).
		Where("assignment_id = ? AND user_id = ? AND status <> ?", input.AssignmentId, input.UserId, entity.SubmissionStatusSubmitted).
		Updates(map[string]interface{}{
			"status":          entity.SubmissionStatusSubmitted,
			"late":            input.Late,
			"submitted_at":    &at,
			"conversation_id": input.ConversationId,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *SubmissionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Submission, error) {
	var m model.Submission
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SubmissionToEntity(&m), nil
}

func (r *SubmissionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Submission{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
