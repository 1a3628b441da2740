package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

// projectDirectory resolves projects for budget reporting. Satisfied by
// the projects service.
type projectDirectory interface {
	Get(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
}

// Service exposes payment and expense operations.
type Service interface {
	CreatePayment(ctx context.Context, actorID uuid.UUID, input CreatePaymentInput) (*models.Payment, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, filters PaymentFilters) ([]models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, next enums.PaymentStatus) (*models.Payment, error)
	MarkOverduePayments(ctx context.Context, now time.Time) (int, error)

	CreateExpense(ctx context.Context, actorID uuid.UUID, input CreateExpenseInput) (*models.Expense, error)
	DeleteExpense(ctx context.Context, expenseID uuid.UUID) error
	ListExpenses(ctx context.Context, filters ExpenseFilters) ([]models.Expense, error)

	ProjectBudgetSummary(ctx context.Context, projectID uuid.UUID) (*BudgetSummary, error)
}

// CreatePaymentInput holds the validated payload to invoice a project.
type CreatePaymentInput struct {
	ProjectID   uuid.UUID
	Amount      decimal.Decimal
	Description *string
	DueDate     time.Time
	InvoiceURL  *string
}

// CreateExpenseInput books a cost against a project.
type CreateExpenseInput struct {
	ProjectID   uuid.UUID
	Amount      decimal.Decimal
	Category    string
	Description *string
	Date        time.Time
}

// BudgetSummary reports a project's financial position.
type BudgetSummary struct {
	ProjectID     uuid.UUID        `json:"project_id"`
	Budget        *decimal.Decimal `json:"budget,omitempty"`
	TotalInvoiced decimal.Decimal  `json:"total_invoiced"`
	TotalPaid     decimal.Decimal  `json:"total_paid"`
	TotalExpenses decimal.Decimal  `json:"total_expenses"`
	Remaining     *decimal.Decimal `json:"remaining,omitempty"`
}

type service struct {
	repo     *Repository
	projects projectDirectory
}

// NewService constructs a payments service instance.
func NewService(repo *Repository, projects projectDirectory) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if projects == nil {
		return nil, fmt.Errorf("project directory required")
	}
	return &service{repo: repo, projects: projects}, nil
}

// CreatePayment raises a pending invoice on a project.
func (s *service) CreatePayment(ctx context.Context, actorID uuid.UUID, input CreatePaymentInput) (*models.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if input.DueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due_date is required")
	}
	if _, err := s.projects.Get(ctx, input.ProjectID); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ProjectID:   input.ProjectID,
		Amount:      input.Amount,
		Description: input.Description,
		Status:      enums.PaymentStatusPending,
		DueDate:     input.DueDate,
		InvoiceURL:  input.InvoiceURL,
		CreatedBy:   actorID,
	}
	created, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert payment")
	}
	return created, nil
}

// GetPayment returns one payment.
func (s *service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load payment")
	}
	return payment, nil
}

// ListPayments returns filtered payments.
func (s *service) ListPayments(ctx context.Context, filters PaymentFilters) ([]models.Payment, error) {
	rows, err := s.repo.ListPayments(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list payments")
	}
	return rows, nil
}

// UpdatePaymentStatus moves the payment along its lifecycle. Settling
// stamps paid_date.
func (s *service) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, next enums.PaymentStatus) (*models.Payment, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", next))
	}
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.Status.CanTransition(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move payment from %s to %s", payment.Status, next))
	}

	var extra map[string]any
	if next == enums.PaymentStatusPaid {
		extra = map[string]any{"paid_date": time.Now().UTC()}
	}
	rows, err := s.repo.TransitionStatus(ctx, paymentID, payment.Status, next, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transition payment")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment changed concurrently")
	}
	return s.GetPayment(ctx, paymentID)
}

// MarkOverduePayments flags unsettled payments past their due date and
// returns how many were flagged. Intended for a periodic sweep.
func (s *service) MarkOverduePayments(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.repo.ListOverdueCandidates(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list overdue candidates")
	}
	flagged := 0
	for _, payment := range candidates {
		rows, err := s.repo.TransitionStatus(ctx, payment.ID, payment.Status, enums.PaymentStatusOverdue, nil)
		if err != nil {
			return flagged, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: flag overdue payment")
		}
		if rows > 0 {
			flagged++
		}
	}
	return flagged, nil
}

// CreateExpense books a cost against the project.
func (s *service) CreateExpense(ctx context.Context, actorID uuid.UUID, input CreateExpenseInput) (*models.Expense, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense amount must be positive")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense category is required")
	}
	if input.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense date is required")
	}
	if _, err := s.projects.Get(ctx, input.ProjectID); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ProjectID:   input.ProjectID,
		Amount:      input.Amount,
		Category:    category,
		Description: input.Description,
		Date:        input.Date,
		CreatedBy:   actorID,
	}
	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert expense")
	}
	return created, nil
}

// DeleteExpense removes one booked cost.
func (s *service) DeleteExpense(ctx context.Context, expenseID uuid.UUID) error {
	rows, err := s.repo.DeleteExpense(ctx, expenseID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete expense")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
	}
	return nil
}

// ListExpenses returns filtered expenses.
func (s *service) ListExpenses(ctx context.Context, filters ExpenseFilters) ([]models.Expense, error) {
	rows, err := s.repo.ListExpenses(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list expenses")
	}
	return rows, nil
}

// ProjectBudgetSummary aggregates the project's invoiced, settled and
// booked amounts against its budget. Cancelled payments are excluded.
func (s *service) ProjectBudgetSummary(ctx context.Context, projectID uuid.UUID) (*BudgetSummary, error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	paymentRows, err := s.repo.ListPayments(ctx, PaymentFilters{ProjectID: &projectID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list payments")
	}
	expenseRows, err := s.repo.ListExpenses(ctx, ExpenseFilters{ProjectID: &projectID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list expenses")
	}

	summary := &BudgetSummary{
		ProjectID: projectID,
		Budget:    project.Budget,
	}
	for _, payment := range paymentRows {
		if payment.Status == enums.PaymentStatusCancelled {
			continue
		}
		summary.TotalInvoiced = summary.TotalInvoiced.Add(payment.Amount)
		if payment.Status == enums.PaymentStatusPaid {
			summary.TotalPaid = summary.TotalPaid.Add(payment.Amount)
		}
	}
	for _, expense := range expenseRows {
		summary.TotalExpenses = summary.TotalExpenses.Add(expense.Amount)
	}
	if project.Budget != nil {
		remaining := project.Budget.Sub(summary.TotalExpenses)
		summary.Remaining = &remaining
	}
	return summary, nil
}
