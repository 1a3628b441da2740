package team

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/internal/users"
	"github.com/apexbuild/apexbuild-backend/pkg/config"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
	"github.com/apexbuild/apexbuild-backend/pkg/security"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:team_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.Profile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
	svc, err := NewService(users.NewRepository(gdb), gormTxRunner{db: gdb}, cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, gdb
}

func TestInviteCreatesStaffAccount(t *testing.T) {
	t.Parallel()

	svc, gdb := newTestService(t)
	ctx := context.Background()

	result, err := svc.Invite(ctx, InviteInput{
		FullName: "Priya Nair",
		Email:    "Priya.Nair@Example.com",
		Role:     enums.AppRoleEngineer,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if result.TempPassword == "" {
		t.Fatal("invite should return a one-time password")
	}
	if result.Profile.Role != enums.AppRoleEngineer {
		t.Fatalf("expected engineer role, got %s", result.Profile.Role)
	}

	// The generated password unlocks the account.
	var user models.User
	if err := gdb.First(&user, "email = ?", "priya.nair@example.com").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	valid, err := security.VerifyPassword(result.TempPassword, user.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("temp password should verify, valid=%v err=%v", valid, err)
	}

	_, err = svc.Invite(ctx, InviteInput{
		FullName: "Priya Nair",
		Email:    "priya.nair@example.com",
		Role:     enums.AppRoleEngineer,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("duplicate invite should conflict, got %v", err)
	}
}

func TestInviteValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []InviteInput{
		{Email: "x@example.com", Role: enums.AppRoleEngineer},
		{FullName: "No Email", Role: enums.AppRoleEngineer},
		{FullName: "Bad Role", Email: "bad@example.com", Role: "superuser"},
	}
	for _, input := range cases {
		_, err := svc.Invite(ctx, input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("input %+v should fail validation, got %v", input, err)
		}
	}
}

func TestUpdateRoleAndDeactivate(t *testing.T) {
	t.Parallel()

	svc, gdb := newTestService(t)
	ctx := context.Background()

	result, err := svc.Invite(ctx, InviteInput{
		FullName: "Omar Diallo",
		Email:    "omar@example.com",
		Role:     enums.AppRoleVendor,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	updated, err := svc.UpdateRole(ctx, result.Profile.ID, enums.AppRoleEngineer)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Role != enums.AppRoleEngineer {
		t.Fatalf("role not updated, got %s", updated.Role)
	}

	if _, err := svc.UpdateRole(ctx, uuid.New(), enums.AppRoleEngineer); err == nil {
		t.Fatal("unknown profile should be not found")
	}

	if err := svc.SetActive(ctx, result.Profile.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	var user models.User
	if err := gdb.First(&user, "email = ?", "omar@example.com").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.IsActive {
		t.Fatal("account should be deactivated")
	}
}

func TestListByRole(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, input := range []InviteInput{
		{FullName: "Engineer One", Email: "e1@example.com", Role: enums.AppRoleEngineer},
		{FullName: "Engineer Two", Email: "e2@example.com", Role: enums.AppRoleEngineer},
		{FullName: "Vendor One", Email: "v1@example.com", Role: enums.AppRoleVendor},
	} {
		if _, err := svc.Invite(ctx, input); err != nil {
			t.Fatalf("invite %s: %v", input.Email, err)
		}
	}

	engineer := enums.AppRoleEngineer
	rows, err := svc.List(ctx, users.ProfileFilters{Role: &engineer})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected two engineers, got %d", len(rows))
	}
}
