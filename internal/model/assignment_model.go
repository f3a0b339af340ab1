package model

import (
	"time"

	"github.com/google/uuid"
)

type Assignment struct {
	Id                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title             string     `gorm:"type:text;not null"`
	Topic             string     `gorm:"type:text;not null"`
	Question          string     `gorm:"type:text"`
	DueAt             *time.Time `gorm:"index"`
	AllowLate         bool       `gorm:"not null;default:false"`
	AllowResubmission bool       `gorm:"not null;default:false"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
}

func (Assignment) TableName() string {
	return "assignments"
}
