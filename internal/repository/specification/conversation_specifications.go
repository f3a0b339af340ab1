package specification

import (
	"time"

	"socratic-tutor-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByUserID struct {
	UserID uuid.UUID
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type ByAssignmentID struct {
	AssignmentID uuid.UUID
}

func (s ByAssignmentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("assignment_id = ?", s.AssignmentID)
}

type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

// ByState filters conversations by their wire-visible state.
type ByState struct {
	State string
}

func (s ByState) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("state = ?", s.State)
}

// LastActionBefore selects conversations idle since the given time.
type LastActionBefore struct {
	Before time.Time
}

func (s LastActionBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("last_action_at < ?", s.Before)
}

// BySubmissionStatus filters submissions.
type BySubmissionStatus struct {
	Status string
}

func (s BySubmissionStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// PendingSubmission keeps conversations whose submission is not yet submitted.
type PendingSubmission struct{}

func (s PendingSubmission) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(
		"NOT EXISTS (SELECT 1 FROM submissions s WHERE s.assignment_id = conversations.assignment_id AND s.user_id = conversations.user_id AND s.status = ?)",
		entity.SubmissionStatusSubmitted,
	)
}
