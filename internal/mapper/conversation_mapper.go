package mapper

import (
	"time"

	"socratic-tutor-be/internal/entity"
	"socratic-tutor-be/internal/model"

	"gorm.io/datatypes"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

func (m *ConversationMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Conversation{
		Id:            c.Id,
		AssignmentId:  c.AssignmentId,
		UserId:        c.UserId,
		State:         c.State,
		DialogueState: c.DialogueState.Data(),
		TokenUsage:    c.TokenUsage.Data(),
		Version:       c.Version,
		LastActionAt:  c.LastActionAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *ConversationMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Conversation{
		Id:            c.Id,
		AssignmentId:  c.AssignmentId,
		UserId:        c.UserId,
		State:         c.State,
		DialogueState: datatypes.NewJSONType(c.DialogueState),
		TokenUsage:    datatypes.NewJSONType(c.TokenUsage),
		Version:       c.Version,
		LastActionAt:  c.LastActionAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

// Turn Mappers

func (m *ConversationMapper) TurnToEntity(t *model.Turn) *entity.Turn {
	if t == nil {
		return nil
	}

	var analysis *entity.TurnAnalysis
	if a := t.Analysis.Data(); a != nil {
		analysis = &entity.TurnAnalysis{Stage: a.Stage, Stance: a.Stance, Principle: a.Principle}
	}

	return &entity.Turn{
		Id:             t.Id,
		ConversationId: t.ConversationId,
		Seq:            t.Seq,
		Role:           t.Role,
		Type:           t.Type,
		Text:           t.Text,
		Analysis:       analysis,
		TokenUsage:     t.TokenUsage.Data(),
		CreatedAt:      t.CreatedAt,
	}
}

func (m *ConversationMapper) TurnToModel(t *entity.Turn) *model.Turn {
	if t == nil {
		return nil
	}

	var analysis *model.TurnAnalysis
	if t.Analysis != nil {
		analysis = &model.TurnAnalysis{Stage: t.Analysis.Stage, Stance: t.Analysis.Stance, Principle: t.Analysis.Principle}
	}

	return &model.Turn{
		Id:             t.Id,
		ConversationId: t.ConversationId,
		Seq:            t.Seq,
		Role:           t.Role,
		Type:           t.Type,
		Text:           t.Text,
		Analysis:       datatypes.NewJSONType(analysis),
		TokenUsage:     datatypes.NewJSONType(t.TokenUsage),
		CreatedAt:      t.CreatedAt,
	}
}

func (m *ConversationMapper) TurnsToEntities(turns []*model.Turn) []*entity.Turn {
	entities := make([]*entity.Turn, len(turns))
	for i, t := range turns {
		entities[i] = m.TurnToEntity(t)
	}
	return entities
}
