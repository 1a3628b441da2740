package procurement

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/internal/materials"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:procurement_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Vendor{},
		&models.MaterialPrice{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderItem{},
		&models.Material{},
		&models.MaterialTransaction{},
		&models.MaterialRequest{},
		&models.Profile{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	ledger, err := materials.NewService(materials.NewRepository(gdb), gormTxRunner{db: gdb}, nil)
	if err != nil {
		t.Fatalf("new materials service: %v", err)
	}
	svc, err := NewService(NewRepository(gdb), gormTxRunner{db: gdb}, ledger)
	if err != nil {
		t.Fatalf("new procurement service: %v", err)
	}
	return svc
}

func mustCreateTestProfile(t *testing.T, tx *gorm.DB) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		FullName: "Procurement Tester",
		Email:    fmt.Sprintf("ab_test_%s@example.com", uuid.NewString()),
		Role:     enums.AppRoleAdmin,
	}
	if err := tx.Create(profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}

func mustCreateTestVendor(t *testing.T, tx *gorm.DB) *models.Vendor {
	t.Helper()
	vendor := &models.Vendor{
		ID:   uuid.New(),
		Name: fmt.Sprintf("Vendor %s", uuid.NewString()),
	}
	if err := tx.Create(vendor).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return vendor
}

func mustCreateTestMaterial(t *testing.T, tx *gorm.DB, quantity int) *models.Material {
	t.Helper()
	material := &models.Material{
		ID:           uuid.New(),
		Name:         fmt.Sprintf("Gravel %s", uuid.NewString()),
		Unit:         "ton",
		Quantity:     quantity,
		ReorderLevel: 5,
	}
	if err := tx.Create(material).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}
	return material
}
