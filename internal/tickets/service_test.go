package tickets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:tickets_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Ticket{}, &models.Project{}); err != nil {
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

func mustCreateTestProject(t *testing.T, tx *gorm.DB) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:        uuid.New(),
		Name:      "Depot Refit",
		Status:    enums.ProjectStatusInProgress,
		CreatedBy: uuid.New(),
	}
	if err := tx.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func TestCreateTicketValidation(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	project := mustCreateTestProject(t, gdb)
	client := uuid.New()

	ticket, err := svc.Create(ctx, client, CreateInput{
		ProjectID:   project.ID,
		Title:       "Cracked slab in bay 3",
		Description: "Hairline cracks appeared after the last pour.",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if ticket.Status != enums.TicketStatusOpen {
		t.Fatalf("new ticket should be open, got %s", ticket.Status)
	}
	if ticket.Priority != enums.PriorityLevelMedium {
		t.Fatalf("default priority should be medium, got %s", ticket.Priority)
	}

	cases := []CreateInput{
		{ProjectID: project.ID, Description: "no title"},
		{ProjectID: project.ID, Title: "no description"},
		{Title: "orphan", Description: "missing project"},
		{ProjectID: project.ID, Title: "bad", Description: "priority", Priority: "severe"},
	}
	for _, input := range cases {
		_, err := svc.Create(ctx, client, input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("input %+v should fail validation, got %v", input, err)
		}
	}
}

func TestTicketStatusLifecycle(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	project := mustCreateTestProject(t, gdb)

	ticket, err := svc.Create(ctx, uuid.New(), CreateInput{
		ProjectID:   project.ID,
		Title:       "Leaking roof membrane",
		Description: "Water pooling near the east stairwell.",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, ticket.ID, enums.TicketStatusClosed); err == nil {
		t.Fatal("open cannot jump straight to closed")
	}

	for _, next := range []enums.TicketStatus{
		enums.TicketStatusInProgress,
		enums.TicketStatusResolved,
		enums.TicketStatusOpen, // client reopens
		enums.TicketStatusResolved,
		enums.TicketStatusClosed,
	} {
		if ticket, err = svc.UpdateStatus(ctx, ticket.ID, next); err != nil {
			t.Fatalf("move to %s: %v", next, err)
		}
	}

	_, err = svc.UpdateStatus(ctx, ticket.ID, enums.TicketStatusOpen)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("closed is terminal, got %v", err)
	}
}

func TestTicketAssignAndFilter(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	project := mustCreateTestProject(t, gdb)
	client := uuid.New()
	handler := uuid.New()

	ticket, err := svc.Create(ctx, client, CreateInput{
		ProjectID:   project.ID,
		Title:       "Gate access card rejected",
		Description: "Site gate reader refuses the issued card.",
		Priority:    enums.PriorityLevelHigh,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if _, err := svc.Create(ctx, uuid.New(), CreateInput{
		ProjectID:   project.ID,
		Title:       "Signage faded",
		Description: "Safety signage on level 2 is unreadable.",
	}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if _, err := svc.Assign(ctx, ticket.ID, &handler); err != nil {
		t.Fatalf("assign ticket: %v", err)
	}

	mine, err := svc.List(ctx, Filters{AssignedTo: &handler})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != ticket.ID {
		t.Fatalf("expected only the assigned ticket, got %d rows", len(mine))
	}

	raised, err := svc.List(ctx, Filters{CreatedBy: &client})
	if err != nil {
		t.Fatalf("list tickets by creator: %v", err)
	}
	if len(raised) != 1 || raised[0].ID != ticket.ID {
		t.Fatalf("expected only the client's ticket, got %d rows", len(raised))
	}
}
