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
)

type AssignmentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AssignmentMapper
}

func NewAssignmentRepository(db *gorm.DB) contract.AssignmentRepository {
	return &AssignmentRepositoryImpl{
		db:     db,
		mapper: mapper.NewAssignmentMapper(),
	}
}

func (r *AssignmentRepositoryImpl) Create(ctx context.Context, assignment *entity.Assignment) error {
	if assignment.Id == uuid.Nil {
		assignment.Id = uuid.New()
	}
	m := r.mapper.AssignmentToModel(assignment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*assignment = *r.mapper.AssignmentToEntity(m)
	return nil
}

func (r *AssignmentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Assignment, error) {
	var m model.Assignment
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.AssignmentToEntity(&m), nil
}
