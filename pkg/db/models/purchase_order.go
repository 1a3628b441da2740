package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// PurchaseOrder is a vendor order header. TotalAmount is derived from the
// line items on every item mutation and never accepted from callers.
type PurchaseOrder struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	PONumber         string                    `gorm:"column:po_number;not null;uniqueIndex:idx_purchase_orders_po_number"`
	VendorID         uuid.UUID                 `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProjectID        *uuid.UUID                `gorm:"column:project_id;type:uuid"`
	Status           enums.PurchaseOrderStatus `gorm:"column:status;type:purchase_order_status;not null;default:'draft'"`
	OrderDate        time.Time                 `gorm:"column:order_date;not null"`
	ExpectedDelivery *time.Time                `gorm:"column:expected_delivery"`
	ActualDelivery   *time.Time                `gorm:"column:actual_delivery"`
	TotalAmount      decimal.Decimal           `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Notes            *string                   `gorm:"column:notes"`
	DocumentURL      *string                   `gorm:"column:document_url"`
	Items            []PurchaseOrderItem       `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	CreatedBy        uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseOrderItem is one ordered material line.
type PurchaseOrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID uuid.UUID       `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	MaterialID      uuid.UUID       `gorm:"column:material_id;type:uuid;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice      decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
}
