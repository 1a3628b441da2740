package equipment

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:equipment_" + uuid.NewString() + "?mode=memory&cache=shared"
	return openTestDB(t, dsn)
}

// newFileTestDB backs the database with a file so concurrent writers
// contend on real locks instead of shared-cache ones.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "equipment.db") + "?_busy_timeout=5000"
	return openTestDB(t, dsn)
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Equipment{}, &models.EquipmentAllocation{}, &models.Project{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(gdb), gormTxRunner{db: gdb})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateEquipmentStartsAvailable(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	pool, err := svc.Create(ctx, CreateInput{Name: "Concrete mixer", Quantity: 6})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	if pool.AvailableQty != 6 {
		t.Fatalf("full quantity should start available, got %d", pool.AvailableQty)
	}

	if _, err := svc.Create(ctx, CreateInput{Name: "  ", Quantity: 1}); err == nil {
		t.Fatal("blank name should be rejected")
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "Crane", Quantity: -1}); err == nil {
		t.Fatal("negative quantity should be rejected")
	}
}

func TestAllocateAndReturn(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	actor := uuid.New()
	projectID := uuid.New()

	pool, err := svc.Create(ctx, CreateInput{Name: "Scaffold tower", Quantity: 4})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}

	alloc, err := svc.Allocate(ctx, actor, AllocateInput{
		EquipmentID: pool.ID,
		ProjectID:   projectID,
		Quantity:    3,
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	reloaded, err := svc.Get(ctx, pool.ID)
	if err != nil {
		t.Fatalf("get equipment: %v", err)
	}
	if reloaded.AvailableQty != 1 {
		t.Fatalf("expected 1 available after allocation, got %d", reloaded.AvailableQty)
	}

	// Over-allocating the remainder fails and moves nothing.
	_, err = svc.Allocate(ctx, actor, AllocateInput{
		EquipmentID: pool.ID,
		ProjectID:   projectID,
		Quantity:    2,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	returned, err := svc.Return(ctx, alloc.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.ReturnedAt == nil {
		t.Fatal("return should stamp returned_at")
	}

	reloaded, err = svc.Get(ctx, pool.ID)
	if err != nil {
		t.Fatalf("get equipment: %v", err)
	}
	if reloaded.AvailableQty != 4 {
		t.Fatalf("expected full pool after return, got %d", reloaded.AvailableQty)
	}

	_, err = svc.Return(ctx, alloc.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("double return should conflict, got %v", err)
	}
}

func TestAllocateUnknownEquipment(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, uuid.New(), AllocateInput{
		EquipmentID: uuid.New(),
		ProjectID:   uuid.New(),
		Quantity:    1,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentAllocationsDoNotOverdraw(t *testing.T) {
	t.Parallel()

	gdb := newFileTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	actor := uuid.New()

	pool, err := svc.Create(ctx, CreateInput{Name: "Generator", Quantity: 1})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Allocate(ctx, actor, AllocateInput{
				EquipmentID: pool.ID,
				ProjectID:   uuid.New(),
				Quantity:    1,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("exactly one allocation should win, got %d", succeeded)
	}

	reloaded, err := svc.Get(ctx, pool.ID)
	if err != nil {
		t.Fatalf("get equipment: %v", err)
	}
	if reloaded.AvailableQty != 0 {
		t.Fatalf("pool should be empty, got %d available", reloaded.AvailableQty)
	}
}

func TestDeleteEquipmentWithOpenLoan(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	pool, err := svc.Create(ctx, CreateInput{Name: "Laser level", Quantity: 2})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	alloc, err := svc.Allocate(ctx, uuid.New(), AllocateInput{
		EquipmentID: pool.ID,
		ProjectID:   uuid.New(),
		Quantity:    1,
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	err = svc.Delete(ctx, pool.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("delete with open loan should conflict, got %v", err)
	}

	if _, err := svc.Return(ctx, alloc.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := svc.Delete(ctx, pool.ID); err != nil {
		t.Fatalf("delete after return: %v", err)
	}
}
