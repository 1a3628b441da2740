package materials

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, gdb *gorm.DB, alerts Alerter) Service {
	t.Helper()
	svc, err := NewService(NewRepository(gdb), gormTxRunner{db: gdb}, alerts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:materials_" + uuid.NewString() + "?mode=memory&cache=shared"
	return openTestDB(t, dsn)
}

// newFileTestDB uses an on-disk database so concurrent writers contend the
// way they would against Postgres instead of hitting shared-cache locks.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "materials.db")
	return openTestDB(t, "file:"+path+"?_busy_timeout=5000")
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Material{},
		&models.MaterialTransaction{},
		&models.MaterialRequest{},
		&models.Profile{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func mustCreateTestProfile(t *testing.T, tx *gorm.DB, role enums.AppRole) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		FullName: "Ledger Tester",
		Email:    fmt.Sprintf("ab_test_%s@example.com", uuid.NewString()),
		Role:     role,
	}
	if err := tx.Create(profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}

func mustCreateTestMaterial(t *testing.T, tx *gorm.DB, quantity, reorderLevel int) *models.Material {
	t.Helper()
	material := &models.Material{
		ID:           uuid.New(),
		Name:         fmt.Sprintf("Cement %s", uuid.NewString()),
		Unit:         "bag",
		Quantity:     quantity,
		ReorderLevel: reorderLevel,
	}
	if err := tx.Create(material).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}
	return material
}
