package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Project is a construction engagement; most domain rows hang off it.
type Project struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name        string              `gorm:"column:name;not null"`
	Description *string             `gorm:"column:description"`
	Location    *string             `gorm:"column:location"`
	Status      enums.ProjectStatus `gorm:"column:status;type:project_status;not null;default:'planning'"`
	Budget      *decimal.Decimal    `gorm:"column:budget;type:numeric(14,2)"`
	ClientID    *uuid.UUID          `gorm:"column:client_id;type:uuid"`
	StartDate   *time.Time          `gorm:"column:start_date"`
	EndDate     *time.Time          `gorm:"column:end_date"`
	CreatedBy   uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	Members     []ProjectMember     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ProjectMember assigns a profile to a project with a role.
type ProjectMember struct {
	ID         uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID  uuid.UUID     `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_project_members_project_user"`
	UserID     uuid.UUID     `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_project_members_project_user"`
	Role       enums.AppRole `gorm:"column:role;type:app_role;not null"`
	AssignedAt time.Time     `gorm:"column:assigned_at;autoCreateTime"`
}
