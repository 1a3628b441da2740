package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository persists payments and expenses.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreatePayment inserts a new payment row.
func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdatePayment saves the payment row.
func (r *Repository) UpdatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// FindPaymentByID loads one payment.
func (r *Repository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// PaymentFilters narrows payment listings.
type PaymentFilters struct {
	ProjectID *uuid.UUID
	Status    *enums.PaymentStatus
}

// ListPayments returns payments due soonest first.
func (r *Repository) ListPayments(ctx context.Context, filters PaymentFilters) ([]models.Payment, error) {
	qb := r.db.WithContext(ctx).Model(&models.Payment{})
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	var rows []models.Payment
	err := qb.Order("due_date ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// TransitionStatus flips the payment status pinned to its current
// value, applying extra column writes in the same statement.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, extra map[string]any) (int64, error) {
	updates := map[string]any{"status": to}
	for column, value := range extra {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// ListOverdueCandidates returns pending and approved payments whose due
// date has passed.
func (r *Repository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusApproved}).
		Where("due_date < ?", now).
		Find(&rows).Error
	return rows, err
}

// CreateExpense inserts a new expense row.
func (r *Repository) CreateExpense(ctx context.Context, expense *models.Expense) (*models.Expense, error) {
	if expense.ID == uuid.Nil {
		expense.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(expense).Error; err != nil {
		return nil, err
	}
	return expense, nil
}

// DeleteExpense removes an expense and reports whether a row matched.
func (r *Repository) DeleteExpense(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Expense{})
	return result.RowsAffected, result.Error
}

// ExpenseFilters narrows expense listings.
type ExpenseFilters struct {
	ProjectID *uuid.UUID
	Category  *string
}

// ListExpenses returns expenses newest first.
func (r *Repository) ListExpenses(ctx context.Context, filters ExpenseFilters) ([]models.Expense, error) {
	qb := r.db.WithContext(ctx).Model(&models.Expense{})
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Category != nil {
		qb = qb.Where("category = ?", *filters.Category)
	}
	var rows []models.Expense
	err := qb.Order("date DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}
