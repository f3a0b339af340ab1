package mapper

import (
	"time"

	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/model"
)

type AssignmentMapper struct{}

func NewAssignmentMapper() *AssignmentMapper {
	return &AssignmentMapper{}
}

func (m *AssignmentMapper) AssignmentToEntity(a *model.Assignment) *entity.Assignment {
	if a == nil {
		return nil
	}

	var updatedAt *time.Time
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt
		updatedAt = &t
	}

	return &entity.Assignment{
		Id:                a.Id,
		Title:             a.Title,
		Topic:             a.Topic,
		Question:          a.Question,
		DueAt:             a.DueAt,
		AllowLate:         a.AllowLate,
		AllowResubmission: a.AllowResubmission,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         updatedAt,
	}
}

func (m *AssignmentMapper) AssignmentToModel(a *entity.Assignment) *model.Assignment {
	if a == nil {
		return nil
	}

	var updatedAt time.Time
	if a.UpdatedAt != nil {
		updatedAt = *a.UpdatedAt
	}

	return &model.Assignment{
		Id:                a.Id,
		Title:             a.Title,
		Topic:             a.Topic,
		Question:          a.Question,
		DueAt:             a.DueAt,
		AllowLate:         a.AllowLate,
		AllowResubmission: a.AllowResubmission,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         updatedAt,
	}
}

// Submission Mappers

func (m *AssignmentMapper) SubmissionToEntity(s *model.Submission) *entity.Submission {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.Submission{
		Id:             s.Id,
		AssignmentId:   s.AssignmentId,
		UserId:         s.UserId,
		ConversationId: s.ConversationId,
		Status:         s.Status,
		Late:           s.Late,
		SubmittedAt:    s.SubmittedAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *AssignmentMapper) SubmissionToModel(s *entity.Submission) *model.Submission {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.Submission{
		Id:             s.Id,
		AssignmentId:   s.AssignmentId,
		UserId:         s.UserId,
		ConversationId: s.ConversationId,
		Status:         s.Status,
		Late:           s.Late,
		SubmittedAt:    s.SubmittedAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}
