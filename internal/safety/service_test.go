package safety

import (
	"context"
	"encoding/json"
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

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:safety_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Incident{},
		&models.SafetyAudit{},
		&models.SafetyChecklist{},
		&models.SiteInspection{},
		&models.NCRReport{},
		&models.Project{},
	); err != nil {
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

func TestIncidentReportAndResolve(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	projectID := uuid.New()

	incident, err := svc.ReportIncident(ctx, uuid.New(), IncidentInput{
		ProjectID:  &projectID,
		Title:      "Scaffold plank gave way",
		OccurredAt: time.Now().Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("report incident: %v", err)
	}
	if incident.Severity != enums.PriorityLevelMedium {
		t.Fatalf("severity should default to medium, got %s", incident.Severity)
	}
	if incident.Resolved {
		t.Fatal("new incident should be unresolved")
	}

	resolved, err := svc.ResolveIncident(ctx, incident.ID)
	if err != nil {
		t.Fatalf("resolve incident: %v", err)
	}
	if !resolved.Resolved || resolved.ResolvedAt == nil {
		t.Fatal("resolution should stamp resolved_at")
	}

	_, err = svc.ResolveIncident(ctx, incident.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("double resolve should conflict, got %v", err)
	}

	open := false
	remaining, err := svc.ListIncidents(ctx, IncidentFilters{ProjectID: &projectID, Resolved: &open})
	if err != nil {
		t.Fatalf("list incidents: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no open incidents, got %d", len(remaining))
	}
}

func TestAuditLifecycle(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	projectID := uuid.New()

	audit, err := svc.ScheduleAudit(ctx, AuditInput{
		ProjectID: projectID,
		Title:     "Quarterly harness check",
		AuditDate: time.Now().Add(7 * 24 * time.Hour),
		AuditorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("schedule audit: %v", err)
	}
	if audit.CompletedAt != nil {
		t.Fatal("scheduled audit should not be completed")
	}

	if _, err := svc.CompleteAudit(ctx, audit.ID, 140, nil); err == nil {
		t.Fatal("score above 100 should be rejected")
	}

	findings := "Two harnesses past inspection date."
	completed, err := svc.CompleteAudit(ctx, audit.ID, 86, &findings)
	if err != nil {
		t.Fatalf("complete audit: %v", err)
	}
	if completed.Score == nil || *completed.Score != 86 {
		t.Fatalf("score not recorded, got %v", completed.Score)
	}

	_, err = svc.CompleteAudit(ctx, audit.ID, 90, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("double completion should conflict, got %v", err)
	}
}

func TestChecklistItemsRoundTrip(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	checklist, err := svc.CreateChecklist(ctx, uuid.New(), ChecklistInput{
		Title: "Daily toolbox talk",
	})
	if err != nil {
		t.Fatalf("create checklist: %v", err)
	}
	if string(checklist.Items) != "[]" {
		t.Fatalf("items should default to empty array, got %s", checklist.Items)
	}

	items := json.RawMessage(`[{"label":"PPE worn","done":true}]`)
	updated, err := svc.UpdateChecklistItems(ctx, checklist.ID, items)
	if err != nil {
		t.Fatalf("update items: %v", err)
	}
	if string(updated.Items) != string(items) {
		t.Fatalf("items not stored, got %s", updated.Items)
	}

	if _, err := svc.UpdateChecklistItems(ctx, checklist.ID, json.RawMessage(`{broken`)); err == nil {
		t.Fatal("invalid JSON should be rejected")
	}
	_, err = svc.UpdateChecklistItems(ctx, uuid.New(), json.RawMessage(`[]`))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unknown checklist should be not found, got %v", err)
	}
}

func TestInspectionOutcome(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	projectID := uuid.New()

	inspection, err := svc.ScheduleInspection(ctx, InspectionInput{
		ProjectID:      projectID,
		InspectionDate: time.Now().Add(24 * time.Hour),
		InspectorID:    uuid.New(),
	})
	if err != nil {
		t.Fatalf("schedule inspection: %v", err)
	}

	if _, err := svc.RecordInspectionOutcome(ctx, inspection.ID, false, nil, nil); err == nil {
		t.Fatal("failed inspection without follow-up should be rejected")
	}

	followUp := time.Now().Add(14 * 24 * time.Hour)
	notes := "Edge protection missing on level 3."
	recorded, err := svc.RecordInspectionOutcome(ctx, inspection.ID, false, &notes, &followUp)
	if err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if recorded.Passed == nil || *recorded.Passed {
		t.Fatal("verdict should be recorded as failed")
	}

	_, err = svc.RecordInspectionOutcome(ctx, inspection.ID, true, nil, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("double verdict should conflict, got %v", err)
	}
}

func TestNCRNumberingAndLifecycle(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	projectID := uuid.New()
	actor := uuid.New()

	first, err := svc.RaiseNCR(ctx, actor, NCRInput{ProjectID: projectID, Title: "Wrong rebar grade"})
	if err != nil {
		t.Fatalf("raise report: %v", err)
	}
	second, err := svc.RaiseNCR(ctx, actor, NCRInput{ProjectID: projectID, Title: "Unsealed joints"})
	if err != nil {
		t.Fatalf("raise report: %v", err)
	}

	year := time.Now().UTC().Year()
	if first.NCRNumber != fmt.Sprintf("NCR-%d-0001", year) {
		t.Fatalf("unexpected first number %s", first.NCRNumber)
	}
	if second.NCRNumber != fmt.Sprintf("NCR-%d-0002", year) {
		t.Fatalf("unexpected second number %s", second.NCRNumber)
	}

	if _, err := svc.UpdateNCRStatus(ctx, first.ID, enums.NCRStatusClosed, nil); err == nil {
		t.Fatal("closing without a corrective action should be rejected")
	}

	report, err := svc.UpdateNCRStatus(ctx, first.ID, enums.NCRStatusUnderReview, nil)
	if err != nil {
		t.Fatalf("move under review: %v", err)
	}

	action := "Rebar replaced and pour re-inspected."
	report, err = svc.UpdateNCRStatus(ctx, report.ID, enums.NCRStatusClosed, &action)
	if err != nil {
		t.Fatalf("close report: %v", err)
	}
	if report.ClosedAt == nil {
		t.Fatal("closing should stamp closed_at")
	}
	if report.CorrectiveAction == nil || *report.CorrectiveAction != action {
		t.Fatal("corrective action not stored")
	}

	_, err = svc.UpdateNCRStatus(ctx, report.ID, enums.NCRStatusOpen, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("closed is terminal, got %v", err)
	}
}

func TestRaiseNCRRetriesOnNumberCollision(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	projectID := uuid.New()
	actor := uuid.New()
	year := time.Now().UTC().Year()

	// One existing report makes the next derived number NCR-<year>-0002,
	// but that number is already taken by a row the count does not explain.
	taken := &models.NCRReport{
		ID:        uuid.New(),
		ProjectID: projectID,
		NCRNumber: fmt.Sprintf("NCR-%d-0002", year),
		Title:     "Backfilled report",
		Status:    enums.NCRStatusOpen,
		RaisedBy:  actor,
	}
	if err := gdb.Create(taken).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}

	report, err := svc.RaiseNCR(ctx, actor, NCRInput{ProjectID: projectID, Title: "Wrong rebar grade"})
	if err != nil {
		t.Fatalf("raise report: %v", err)
	}
	if want := fmt.Sprintf("NCR-%d-0003", year); report.NCRNumber != want {
		t.Fatalf("expected retry to land on %s, got %s", want, report.NCRNumber)
	}
}
