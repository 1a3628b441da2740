package materials

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
	"github.com/apexbuild/apexbuild-backend/pkg/pagination"
)

func TestRecordTransactionInflowThenOutflow(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	material := mustCreateTestMaterial(t, gdb, 0, 5)

	price := decimal.RequireFromString("12.50")
	result, err := svc.RecordTransaction(ctx, actor.ID, RecordTransactionInput{
		MaterialID: material.ID,
		Type:       enums.TransactionTypeInflow,
		Quantity:   10,
		UnitPrice:  &price,
	})
	if err != nil {
		t.Fatalf("record inflow: %v", err)
	}
	if result.Material.Quantity != 10 {
		t.Fatalf("expected quantity 10, got %d", result.Material.Quantity)
	}
	if result.LowStock {
		t.Fatal("quantity 10 with reorder level 5 should not be low stock")
	}

	result, err = svc.RecordTransaction(ctx, actor.ID, RecordTransactionInput{
		MaterialID: material.ID,
		Type:       enums.TransactionTypeOutflow,
		Quantity:   4,
	})
	if err != nil {
		t.Fatalf("record outflow: %v", err)
	}
	if result.Material.Quantity != 6 {
		t.Fatalf("expected quantity 6, got %d", result.Material.Quantity)
	}

	page, err := svc.ListTransactions(ctx, TransactionFilters{MaterialID: &material.ID}, pagination.Params{})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(page.Transactions) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(page.Transactions))
	}
	if page.NextCursor != nil {
		t.Fatal("two rows fit in one page, next cursor should be empty")
	}
}

func TestListTransactionsPagination(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleEngineer)
	material := mustCreateTestMaterial(t, gdb, 0, 0)

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordTransaction(ctx, actor.ID, RecordTransactionInput{
			MaterialID: material.ID,
			Type:       enums.TransactionTypeInflow,
			Quantity:   1,
		}); err != nil {
			t.Fatalf("record inflow %d: %v", i, err)
		}
	}

	filters := TransactionFilters{MaterialID: &material.ID}
	first, err := svc.ListTransactions(ctx, filters, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(first.Transactions) != 2 {
		t.Fatalf("expected 2 rows on first page, got %d", len(first.Transactions))
	}
	if first.NextCursor == nil {
		t.Fatal("expected a next cursor for the remaining row")
	}

	second, err := svc.ListTransactions(ctx, filters, pagination.Params{Limit: 2, Cursor: *first.NextCursor})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Transactions) != 1 {
		t.Fatalf("expected 1 row on second page, got %d", len(second.Transactions))
	}
	if second.NextCursor != nil {
		t.Fatal("last page should not return a cursor")
	}

	if _, err := svc.ListTransactions(ctx, filters, pagination.Params{Cursor: "not-base64!"}); err == nil {
		t.Fatal("expected validation error for malformed cursor")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestRecordTransactionInsufficientStock(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleEngineer)
	material := mustCreateTestMaterial(t, gdb, 3, 5)

	_, err := svc.RecordTransaction(ctx, actor.ID, RecordTransactionInput{
		MaterialID: material.ID,
		Type:       enums.TransactionTypeOutflow,
		Quantity:   5,
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	var reloaded models.Material
	if err := gdb.First(&reloaded, "id = ?", material.ID).Error; err != nil {
		t.Fatalf("reload material: %v", err)
	}
	if reloaded.Quantity != 3 {
		t.Fatalf("quantity changed on rejected outflow: %d", reloaded.Quantity)
	}

	var count int64
	if err := gdb.Model(&models.MaterialTransaction{}).Where("material_id = ?", material.ID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected outflow left %d ledger rows", count)
	}
}

func TestRecordTransactionUnknownMaterial(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)

	_, err := svc.RecordTransaction(context.Background(), actor.ID, RecordTransactionInput{
		MaterialID: uuid.New(),
		Type:       enums.TransactionTypeInflow,
		Quantity:   1,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	material := mustCreateTestMaterial(t, gdb, 5, 2)

	cases := []RecordTransactionInput{
		{MaterialID: material.ID, Type: "sideways", Quantity: 1},
		{MaterialID: material.ID, Type: enums.TransactionTypeInflow, Quantity: 0},
		{MaterialID: material.ID, Type: enums.TransactionTypeOutflow, Quantity: -2},
	}
	for _, input := range cases {
		_, err := svc.RecordTransaction(context.Background(), actor.ID, input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

type captureAlerter struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (c *captureAlerter) LowStock(ctx context.Context, material *models.Material) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, material.ID)
}

func TestRecordTransactionLowStockAlert(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	alerts := &captureAlerter{}
	svc := newTestService(t, gdb, alerts)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	material := mustCreateTestMaterial(t, gdb, 12, 10)

	result, err := svc.RecordTransaction(ctx, actor.ID, RecordTransactionInput{
		MaterialID: material.ID,
		Type:       enums.TransactionTypeOutflow,
		Quantity:   3,
	})
	if err != nil {
		t.Fatalf("record outflow: %v", err)
	}
	if !result.LowStock {
		t.Fatal("quantity 9 at reorder level 10 should flag low stock")
	}
	if len(alerts.calls) != 1 || alerts.calls[0] != material.ID {
		t.Fatalf("expected one low stock alert, got %v", alerts.calls)
	}
}

func TestConcurrentInflowsDoNotLoseUpdates(t *testing.T) {
	gdb := newFileTestDB(t)
	svc := newTestService(t, gdb, nil)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	material := mustCreateTestMaterial(t, gdb, 0, 0)

	const workers = 2
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordTransaction(ctx, actor.ID, RecordTransactionInput{
				MaterialID: material.ID,
				Type:       enums.TransactionTypeInflow,
				Quantity:   5,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent inflow failed: %v", err)
		}
	}

	var reloaded models.Material
	if err := gdb.First(&reloaded, "id = ?", material.ID).Error; err != nil {
		t.Fatalf("reload material: %v", err)
	}
	if reloaded.Quantity != 10 {
		t.Fatalf("expected quantity 10 after two inflows of 5, got %d", reloaded.Quantity)
	}

	var count int64
	if err := gdb.Model(&models.MaterialTransaction{}).Where("material_id = ?", material.ID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != workers {
		t.Fatalf("expected %d ledger rows, got %d", workers, count)
	}
}

func TestDecideRequestApproveOnce(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	ctx := context.Background()
	requester := mustCreateTestProfile(t, gdb, enums.AppRoleEngineer)
	approver := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	material := mustCreateTestMaterial(t, gdb, 20, 5)
	projectID := uuid.New()

	request, err := svc.CreateRequest(ctx, requester.ID, CreateRequestInput{
		MaterialID: material.ID,
		ProjectID:  projectID,
		Quantity:   8,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if request.Status != enums.RequestStatusPending {
		t.Fatalf("new request should be pending, got %s", request.Status)
	}

	decided, err := svc.DecideRequest(ctx, approver.ID, request.ID, enums.RequestDecisionApprove)
	if err != nil {
		t.Fatalf("approve request: %v", err)
	}
	if decided.Status != enums.RequestStatusApproved {
		t.Fatalf("expected approved, got %s", decided.Status)
	}
	if decided.ApprovedBy == nil || *decided.ApprovedBy != approver.ID {
		t.Fatal("approver not stamped")
	}
	if decided.ApprovedAt == nil {
		t.Fatal("approval time not stamped")
	}

	// Approval is advisory: stock must not move.
	var reloaded models.Material
	if err := gdb.First(&reloaded, "id = ?", material.ID).Error; err != nil {
		t.Fatalf("reload material: %v", err)
	}
	if reloaded.Quantity != 20 {
		t.Fatalf("approval moved stock: %d", reloaded.Quantity)
	}

	_, err = svc.DecideRequest(ctx, approver.ID, request.ID, enums.RequestDecisionReject)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second decision, got %v", err)
	}
}

func TestDecideRequestNotFound(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	approver := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)

	_, err := svc.DecideRequest(context.Background(), approver.ID, uuid.New(), enums.RequestDecisionApprove)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLowStockMaterials(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	ctx := context.Background()

	low := mustCreateTestMaterial(t, gdb, 4, 5)
	atLevel := mustCreateTestMaterial(t, gdb, 5, 5)
	healthy := mustCreateTestMaterial(t, gdb, 6, 5)

	rows, err := svc.LowStockMaterials(ctx)
	if err != nil {
		t.Fatalf("low stock materials: %v", err)
	}

	found := map[uuid.UUID]bool{}
	for _, row := range rows {
		found[row.ID] = true
	}
	if !found[low.ID] || !found[atLevel.ID] {
		t.Fatalf("expected low and at-level materials in %v", found)
	}
	if found[healthy.ID] {
		t.Fatal("healthy material reported as low stock")
	}
}

func TestCreateMaterialValidation(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb, nil)
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	ctx := context.Background()

	if _, err := svc.CreateMaterial(ctx, actor.ID, CreateMaterialInput{Name: " ", Unit: "bag"}); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for blank name")
	}
	if _, err := svc.CreateMaterial(ctx, actor.ID, CreateMaterialInput{Name: "Rebar", Unit: ""}); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for blank unit")
	}
	if _, err := svc.CreateMaterial(ctx, actor.ID, CreateMaterialInput{Name: "Rebar", Unit: "ton", ReorderLevel: -1}); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for negative reorder level")
	}

	created, err := svc.CreateMaterial(ctx, actor.ID, CreateMaterialInput{Name: "Rebar", Unit: "ton", ReorderLevel: 3})
	if err != nil {
		t.Fatalf("create material: %v", err)
	}
	if created.Quantity != 0 {
		t.Fatalf("new material should start at zero stock, got %d", created.Quantity)
	}

	if _, err := svc.CreateMaterial(ctx, actor.ID, CreateMaterialInput{Name: "Rebar", Unit: "ton"}); err == nil {
		t.Fatal("expected conflict on duplicate name")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
