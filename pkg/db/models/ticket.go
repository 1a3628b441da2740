package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Ticket is a client-raised issue against a project.
type Ticket struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID   uuid.UUID           `gorm:"column:project_id;type:uuid;not null;index"`
	Title       string              `gorm:"column:title;not null"`
	Description string              `gorm:"column:description;not null"`
	Status      enums.TicketStatus  `gorm:"column:status;type:ticket_status;not null;default:'open'"`
	Priority    enums.PriorityLevel `gorm:"column:priority;type:priority_level;not null;default:'medium'"`
	AssignedTo  *uuid.UUID          `gorm:"column:assigned_to;type:uuid"`
	CreatedBy   uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
