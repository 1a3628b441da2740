package models

import (
	"time"

	"github.com/google/uuid"
)

// Material tracks on-hand stock for one inventory item. Quantity is only
// ever adjusted through the ledger's conditional update; it must equal the
// net sum of all inflow minus outflow transactions.
type Material struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null;uniqueIndex:idx_materials_name"`
	Description  *string   `gorm:"column:description"`
	Unit         string    `gorm:"column:unit;not null"`
	Quantity     int       `gorm:"column:quantity;not null;default:0"`
	ReorderLevel int       `gorm:"column:reorder_level;not null;default:10"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// LowStock reports whether the material sits at or below its reorder level.
func (m Material) LowStock() bool {
	return m.Quantity <= m.ReorderLevel
}
