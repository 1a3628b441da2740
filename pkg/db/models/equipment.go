package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Equipment is a countable asset pool (e.g. 6 concrete mixers).
// AvailableQty moves only through allocation and return.
type Equipment struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name            string                `gorm:"column:name;not null"`
	Description     *string               `gorm:"column:description"`
	Quantity        int                   `gorm:"column:quantity;not null;default:0"`
	AvailableQty    int                   `gorm:"column:available_qty;not null;default:0"`
	Status          enums.EquipmentStatus `gorm:"column:status;type:equipment_status;not null;default:'available'"`
	Location        *string               `gorm:"column:location"`
	LastMaintenance *time.Time            `gorm:"column:last_maintenance"`
	NextMaintenance *time.Time            `gorm:"column:next_maintenance"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// EquipmentAllocation loans units of an equipment pool to a project.
type EquipmentAllocation struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	EquipmentID uuid.UUID  `gorm:"column:equipment_id;type:uuid;not null;index"`
	ProjectID   uuid.UUID  `gorm:"column:project_id;type:uuid;not null;index"`
	Quantity    int        `gorm:"column:quantity;not null;default:1"`
	AllocatedBy uuid.UUID  `gorm:"column:allocated_by;type:uuid;not null"`
	AllocatedAt time.Time  `gorm:"column:allocated_at;autoCreateTime"`
	ReturnedAt  *time.Time `gorm:"column:returned_at"`
}
