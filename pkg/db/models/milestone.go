package models

import (
	"time"

	"github.com/google/uuid"
)

// Milestone marks a dated project checkpoint.
type Milestone struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID   uuid.UUID  `gorm:"column:project_id;type:uuid;not null;index"`
	Title       string     `gorm:"column:title;not null"`
	Description *string    `gorm:"column:description"`
	TargetDate  time.Time  `gorm:"column:target_date;not null"`
	Completed   bool       `gorm:"column:completed;not null;default:false"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
