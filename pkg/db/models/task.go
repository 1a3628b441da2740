package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Task is a unit of project work tracked through the todo/review board.
type Task struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID   uuid.UUID           `gorm:"column:project_id;type:uuid;not null;index"`
	Title       string              `gorm:"column:title;not null"`
	Description *string             `gorm:"column:description"`
	Status      enums.TaskStatus    `gorm:"column:status;type:task_status;not null;default:'todo'"`
	Priority    enums.PriorityLevel `gorm:"column:priority;type:priority_level;not null;default:'medium'"`
	AssignedTo  *uuid.UUID          `gorm:"column:assigned_to;type:uuid"`
	DueDate     *time.Time          `gorm:"column:due_date"`
	CompletedAt *time.Time          `gorm:"column:completed_at"`
	CreatedBy   uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
