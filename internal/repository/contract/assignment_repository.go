package contract

import (
	"context"

	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/repository/specification"
)

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *entity.Assignment) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Assignment, error)
}
