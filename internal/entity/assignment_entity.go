package entity

import (
	"time"

	"github.com/google/uuid"
)

type Assignment struct {
	Id                uuid.UUID
	Title             string
	Topic             string
	Question          string
	DueAt             *time.Time
	AllowLate         bool
	AllowResubmission bool
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}

// AcceptsAt reports whether a turn submitted at t is inside the window.
func (a *Assignment) AcceptsAt(t time.Time) bool {
	return a.DueAt == nil || a.AllowLate || !t.After(*a.DueAt)
}

// IsLate reports whether work finished at t is past the due date.
func (a *Assignment) IsLate(t time.Time) bool {
	return a.DueAt != nil && t.After(*a.DueAt)
}
