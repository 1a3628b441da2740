package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/internal/projects"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Payment{},
		&models.Expense{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Milestone{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	projectSvc, err := projects.NewService(projects.NewRepository(gdb))
	if err != nil {
		t.Fatalf("new projects service: %v", err)
	}
	svc, err := NewService(NewRepository(gdb), projectSvc)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustCreateTestProject(t *testing.T, tx *gorm.DB, budget string) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:        uuid.New(),
		Name:      "Quarry Access Road",
		Status:    enums.ProjectStatusInProgress,
		CreatedBy: uuid.New(),
	}
	if budget != "" {
		value := decimal.RequireFromString(budget)
		project.Budget = &value
	}
	if err := tx.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func TestPaymentLifecycle(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	project := mustCreateTestProject(t, gdb, "")

	payment, err := svc.CreatePayment(ctx, uuid.New(), CreatePaymentInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("2500.00"),
		DueDate:   time.Now().Add(14 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if payment.Status != enums.PaymentStatusPending {
		t.Fatalf("new payment should be pending, got %s", payment.Status)
	}

	if _, err := svc.UpdatePaymentStatus(ctx, payment.ID, enums.PaymentStatusPaid); err == nil {
		t.Fatal("pending cannot jump straight to paid")
	}

	payment, err = svc.UpdatePaymentStatus(ctx, payment.ID, enums.PaymentStatusApproved)
	if err != nil {
		t.Fatalf("approve payment: %v", err)
	}
	payment, err = svc.UpdatePaymentStatus(ctx, payment.ID, enums.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("settle payment: %v", err)
	}
	if payment.PaidDate == nil {
		t.Fatal("settling should stamp paid_date")
	}

	_, err = svc.UpdatePaymentStatus(ctx, payment.ID, enums.PaymentStatusCancelled)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("paid is terminal, got %v", err)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	project := mustCreateTestProject(t, gdb, "")

	cases := []CreatePaymentInput{
		{ProjectID: project.ID, Amount: decimal.Zero, DueDate: time.Now()},
		{ProjectID: project.ID, Amount: decimal.RequireFromString("-10"), DueDate: time.Now()},
		{ProjectID: project.ID, Amount: decimal.RequireFromString("10")},
	}
	for _, input := range cases {
		_, err := svc.CreatePayment(ctx, uuid.New(), input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("input %+v should fail validation, got %v", input, err)
		}
	}

	_, err := svc.CreatePayment(ctx, uuid.New(), CreatePaymentInput{
		ProjectID: uuid.New(),
		Amount:    decimal.RequireFromString("10"),
		DueDate:   time.Now(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unknown project should be not found, got %v", err)
	}
}

func TestMarkOverduePayments(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	project := mustCreateTestProject(t, gdb, "")
	actor := uuid.New()

	late, err := svc.CreatePayment(ctx, actor, CreatePaymentInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("800.00"),
		DueDate:   time.Now().Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := svc.CreatePayment(ctx, actor, CreatePaymentInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("600.00"),
		DueDate:   time.Now().Add(72 * time.Hour),
	}); err != nil {
		t.Fatalf("create payment: %v", err)
	}

	flagged, err := svc.MarkOverduePayments(ctx, time.Now())
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if flagged != 1 {
		t.Fatalf("expected one overdue payment, got %d", flagged)
	}

	reloaded, err := svc.GetPayment(ctx, late.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if reloaded.Status != enums.PaymentStatusOverdue {
		t.Fatalf("late payment should be overdue, got %s", reloaded.Status)
	}

	// Overdue payments can still be settled.
	if _, err := svc.UpdatePaymentStatus(ctx, late.ID, enums.PaymentStatusPaid); err != nil {
		t.Fatalf("settle overdue payment: %v", err)
	}
}

func TestProjectBudgetSummary(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	project := mustCreateTestProject(t, gdb, "10000.00")
	actor := uuid.New()

	first, err := svc.CreatePayment(ctx, actor, CreatePaymentInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("3000.00"),
		DueDate:   time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	cancelled, err := svc.CreatePayment(ctx, actor, CreatePaymentInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("999.00"),
		DueDate:   time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := svc.UpdatePaymentStatus(ctx, first.ID, enums.PaymentStatusApproved); err != nil {
		t.Fatalf("approve payment: %v", err)
	}
	if _, err := svc.UpdatePaymentStatus(ctx, first.ID, enums.PaymentStatusPaid); err != nil {
		t.Fatalf("settle payment: %v", err)
	}
	if _, err := svc.UpdatePaymentStatus(ctx, cancelled.ID, enums.PaymentStatusCancelled); err != nil {
		t.Fatalf("cancel payment: %v", err)
	}

	if _, err := svc.CreateExpense(ctx, actor, CreateExpenseInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("1200.50"),
		Category:  "fuel",
		Date:      time.Now(),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, actor, CreateExpenseInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("300.00"),
		Category:  "rentals",
		Date:      time.Now(),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	summary, err := svc.ProjectBudgetSummary(ctx, project.ID)
	if err != nil {
		t.Fatalf("budget summary: %v", err)
	}
	if !summary.TotalInvoiced.Equal(decimal.RequireFromString("3000.00")) {
		t.Fatalf("cancelled payments should not count, got invoiced %s", summary.TotalInvoiced)
	}
	if !summary.TotalPaid.Equal(decimal.RequireFromString("3000.00")) {
		t.Fatalf("unexpected total paid %s", summary.TotalPaid)
	}
	if !summary.TotalExpenses.Equal(decimal.RequireFromString("1500.50")) {
		t.Fatalf("unexpected total expenses %s", summary.TotalExpenses)
	}
	if summary.Remaining == nil || !summary.Remaining.Equal(decimal.RequireFromString("8499.50")) {
		t.Fatalf("unexpected remaining budget %v", summary.Remaining)
	}
}

func TestExpenseDelete(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	project := mustCreateTestProject(t, gdb, "")

	expense, err := svc.CreateExpense(ctx, uuid.New(), CreateExpenseInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("75.00"),
		Category:  "consumables",
		Date:      time.Now(),
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if err := svc.DeleteExpense(ctx, expense.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	err = svc.DeleteExpense(ctx, expense.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}
