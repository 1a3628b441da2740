package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Payment is an invoiced amount owed on a project.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID   uuid.UUID           `gorm:"column:project_id;type:uuid;not null;index"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Description *string             `gorm:"column:description"`
	Status      enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	DueDate     time.Time           `gorm:"column:due_date;not null"`
	PaidDate    *time.Time          `gorm:"column:paid_date"`
	InvoiceURL  *string             `gorm:"column:invoice_url"`
	CreatedBy   uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Expense is a cost booked against a project budget.
type Expense struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID   uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Category    string          `gorm:"column:category;not null"`
	Description *string         `gorm:"column:description"`
	Date        time.Time       `gorm:"column:date;not null"`
	CreatedBy   uuid.UUID       `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
