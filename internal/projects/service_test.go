package projects

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:projects_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Project{},
		&models.ProjectMember{},
		&models.Milestone{},
		&models.Profile{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(gdb))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustCreateTestProfile(t *testing.T, tx *gorm.DB, role enums.AppRole) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		FullName: "Project Tester",
		Email:    fmt.Sprintf("ab_test_%s@example.com", uuid.NewString()),
		Role:     role,
	}
	if err := tx.Create(profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}

func TestCreateAndGetProject(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)

	created, err := svc.Create(ctx, actor.ID, CreateInput{Name: "Riverside Plaza"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if created.Status != enums.ProjectStatusPlanning {
		t.Fatalf("new project should be planning, got %s", created.Status)
	}

	loaded, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if loaded.Name != "Riverside Plaza" {
		t.Fatalf("unexpected name %s", loaded.Name)
	}
}

func TestProjectStatusLifecycle(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)

	project, err := svc.Create(ctx, actor.ID, CreateInput{Name: "Harbor Works"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	// Planning cannot jump straight to completed.
	if _, err := svc.UpdateStatus(ctx, project.ID, enums.ProjectStatusCompleted); err == nil {
		t.Fatal("expected state conflict")
	}

	for _, next := range []enums.ProjectStatus{
		enums.ProjectStatusInProgress,
		enums.ProjectStatusOnHold,
		enums.ProjectStatusInProgress,
		enums.ProjectStatusCompleted,
	} {
		updated, err := svc.UpdateStatus(ctx, project.ID, next)
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		if updated.Status != next {
			t.Fatalf("expected %s, got %s", next, updated.Status)
		}
	}

	// Completed is terminal.
	if _, err := svc.UpdateStatus(ctx, project.ID, enums.ProjectStatusInProgress); err == nil {
		t.Fatal("expected state conflict on completed project")
	}
}

func TestProjectMembers(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	engineer := mustCreateTestProfile(t, gdb, enums.AppRoleEngineer)

	project, err := svc.Create(ctx, actor.ID, CreateInput{Name: "Depot Refit"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if _, err := svc.AddMember(ctx, project.ID, engineer.ID, enums.AppRoleEngineer); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := svc.AddMember(ctx, project.ID, engineer.ID, enums.AppRoleEngineer); err == nil {
		t.Fatal("expected conflict on duplicate member")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	ok, err := svc.IsMember(ctx, project.ID, engineer.ID)
	if err != nil {
		t.Fatalf("is member: %v", err)
	}
	if !ok {
		t.Fatal("expected membership")
	}

	if err := svc.RemoveMember(ctx, project.ID, engineer.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if err := svc.RemoveMember(ctx, project.ID, engineer.ID); err == nil {
		t.Fatal("expected not found removing twice")
	}
}

func TestMilestoneLifecycle(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)

	project, err := svc.Create(ctx, actor.ID, CreateInput{Name: "Tower Two"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	milestone, err := svc.CreateMilestone(ctx, MilestoneInput{
		ProjectID:  project.ID,
		Title:      "Foundation poured",
		TargetDate: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}

	if err := svc.CompleteMilestone(ctx, milestone.ID); err != nil {
		t.Fatalf("complete milestone: %v", err)
	}
	if err := svc.CompleteMilestone(ctx, milestone.ID); err == nil {
		t.Fatal("expected state conflict completing twice")
	}

	rows, err := svc.ListMilestones(ctx, project.ID)
	if err != nil {
		t.Fatalf("list milestones: %v", err)
	}
	if len(rows) != 1 || !rows[0].Completed || rows[0].CompletedAt == nil {
		t.Fatalf("unexpected milestone state %+v", rows)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	ctx := context.Background()

	if _, err := svc.Create(ctx, actor.ID, CreateInput{Name: "  "}); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for blank name")
	}

	start := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)
	if _, err := svc.Create(ctx, actor.ID, CreateInput{Name: "Backwards", StartDate: &start, EndDate: &end}); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for inverted dates")
	}
}

func TestShowcaseOnlyListsActiveAndCompleted(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	actor := mustCreateTestProfile(t, gdb, enums.AppRoleAdmin)
	ctx := context.Background()

	planned, err := svc.Create(ctx, actor.ID, CreateInput{Name: "Planned Plaza"})
	if err != nil {
		t.Fatalf("create planned: %v", err)
	}
	active, err := svc.Create(ctx, actor.ID, CreateInput{Name: "Active Tower"})
	if err != nil {
		t.Fatalf("create active: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, active.ID, enums.ProjectStatusInProgress); err != nil {
		t.Fatalf("activate: %v", err)
	}

	entries, err := svc.Showcase(ctx)
	if err != nil {
		t.Fatalf("showcase: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 showcase entry, got %d", len(entries))
	}
	if entries[0].ID != active.ID {
		t.Fatalf("expected active project, got %s", entries[0].Name)
	}
	if entries[0].ID == planned.ID {
		t.Fatal("planning projects must stay off the public site")
	}
}
