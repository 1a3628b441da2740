package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// MaterialRequest asks for stock on behalf of a project. It is advisory:
// approval never moves inventory by itself.
type MaterialRequest struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	MaterialID  uuid.UUID           `gorm:"column:material_id;type:uuid;not null;index"`
	ProjectID   uuid.UUID           `gorm:"column:project_id;type:uuid;not null;index"`
	Quantity    int                 `gorm:"column:quantity;not null"`
	Status      enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:'pending'"`
	Notes       *string             `gorm:"column:notes"`
	RequestedBy uuid.UUID           `gorm:"column:requested_by;type:uuid;not null"`
	ApprovedBy  *uuid.UUID          `gorm:"column:approved_by;type:uuid"`
	ApprovedAt  *time.Time          `gorm:"column:approved_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
