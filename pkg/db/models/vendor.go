package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor is a material supplier.
type Vendor struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	ContactPerson *string   `gorm:"column:contact_person"`
	Email         *string   `gorm:"column:email"`
	Phone         *string   `gorm:"column:phone"`
	Address       *string   `gorm:"column:address"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// MaterialPrice quotes a vendor's price per unit for one material.
// Last writer wins; LastUpdated is the only history kept.
type MaterialPrice struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:idx_material_prices_vendor_material"`
	MaterialID  uuid.UUID       `gorm:"column:material_id;type:uuid;not null;uniqueIndex:idx_material_prices_vendor_material"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Unit        string          `gorm:"column:unit;not null"`
	LastUpdated time.Time       `gorm:"column:last_updated;autoUpdateTime"`
}
