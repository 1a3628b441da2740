package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// MaterialTransaction is an immutable stock movement event. Rows are only
// ever inserted, in the same database transaction as the quantity adjustment.
type MaterialTransaction struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	MaterialID      uuid.UUID             `gorm:"column:material_id;type:uuid;not null;index"`
	Type            enums.TransactionType `gorm:"column:transaction_type;type:transaction_type;not null"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	UnitPrice       *decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2)"`
	VendorID        *uuid.UUID            `gorm:"column:vendor_id;type:uuid"`
	ProjectID       *uuid.UUID            `gorm:"column:project_id;type:uuid"`
	ReferenceNumber *string               `gorm:"column:reference_number"`
	Notes           *string               `gorm:"column:notes"`
	CreatedBy       uuid.UUID             `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}
