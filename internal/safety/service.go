package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes site safety operations.
type Service interface {
	ReportIncident(ctx context.Context, actorID uuid.UUID, input IncidentInput) (*models.Incident, error)
	ResolveIncident(ctx context.Context, incidentID uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, filters IncidentFilters) ([]models.Incident, error)

	ScheduleAudit(ctx context.Context, input AuditInput) (*models.SafetyAudit, error)
	CompleteAudit(ctx context.Context, auditID uuid.UUID, score int, findings *string) (*models.SafetyAudit, error)
	ListAudits(ctx context.Context, projectID uuid.UUID) ([]models.SafetyAudit, error)

	CreateChecklist(ctx context.Context, actorID uuid.UUID, input ChecklistInput) (*models.SafetyChecklist, error)
	UpdateChecklistItems(ctx context.Context, checklistID uuid.UUID, items json.RawMessage) (*models.SafetyChecklist, error)
	ListChecklists(ctx context.Context, projectID *uuid.UUID) ([]models.SafetyChecklist, error)

	ScheduleInspection(ctx context.Context, input InspectionInput) (*models.SiteInspection, error)
	RecordInspectionOutcome(ctx context.Context, inspectionID uuid.UUID, passed bool, notes *string, followUp *time.Time) (*models.SiteInspection, error)
	ListInspections(ctx context.Context, projectID uuid.UUID) ([]models.SiteInspection, error)

	RaiseNCR(ctx context.Context, actorID uuid.UUID, input NCRInput) (*models.NCRReport, error)
	GetNCR(ctx context.Context, reportID uuid.UUID) (*models.NCRReport, error)
	ListNCRs(ctx context.Context, filters NCRFilters) ([]models.NCRReport, error)
	UpdateNCRStatus(ctx context.Context, reportID uuid.UUID, next enums.NCRStatus, correctiveAction *string) (*models.NCRReport, error)
}

// IncidentInput reports a site incident.
type IncidentInput struct {
	ProjectID   *uuid.UUID
	Title       string
	Description *string
	Severity    enums.PriorityLevel
	Location    *string
	OccurredAt  time.Time
}

// AuditInput schedules a safety audit.
type AuditInput struct {
	ProjectID uuid.UUID
	Title     string
	AuditDate time.Time
	AuditorID uuid.UUID
}

// ChecklistInput creates a named checklist. Items are an opaque JSON
// array rendered by the client.
type ChecklistInput struct {
	ProjectID *uuid.UUID
	Title     string
	Items     json.RawMessage
}

// InspectionInput schedules a site inspection visit.
type InspectionInput struct {
	ProjectID      uuid.UUID
	InspectionDate time.Time
	InspectorID    uuid.UUID
}

// NCRInput raises a non-conformance report.
type NCRInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description *string
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a safety service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("safety repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// ReportIncident files a new incident.
func (s *service) ReportIncident(ctx context.Context, actorID uuid.UUID, input IncidentInput) (*models.Incident, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "incident title is required")
	}
	if input.OccurredAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "occurred_at is required")
	}
	severity := input.Severity
	if severity == "" {
		severity = enums.PriorityLevelMedium
	}
	if !severity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid severity %q", severity))
	}

	incident, err := s.repo.CreateIncident(ctx, &models.Incident{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: input.Description,
		Severity:    severity,
		Location:    input.Location,
		OccurredAt:  input.OccurredAt,
		ReportedBy:  actorID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert incident")
	}
	return incident, nil
}

// ResolveIncident closes an open incident once.
func (s *service) ResolveIncident(ctx context.Context, incidentID uuid.UUID) (*models.Incident, error) {
	rows, err := s.repo.ResolveIncident(ctx, incidentID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve incident")
	}
	if rows == 0 {
		if _, err := s.repo.FindIncidentByID(ctx, incidentID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "incident not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load incident")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "incident already resolved")
	}
	incident, err := s.repo.FindIncidentByID(ctx, incidentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload incident")
	}
	return incident, nil
}

// ListIncidents returns filtered incidents.
func (s *service) ListIncidents(ctx context.Context, filters IncidentFilters) ([]models.Incident, error) {
	rows, err := s.repo.ListIncidents(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list incidents")
	}
	return rows, nil
}

// ScheduleAudit books a safety audit.
func (s *service) ScheduleAudit(ctx context.Context, input AuditInput) (*models.SafetyAudit, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit title is required")
	}
	if input.AuditDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit_date is required")
	}
	if input.AuditorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auditor_id is required")
	}

	audit, err := s.repo.CreateAudit(ctx, &models.SafetyAudit{
		ProjectID: input.ProjectID,
		Title:     title,
		AuditDate: input.AuditDate,
		AuditorID: input.AuditorID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert audit")
	}
	return audit, nil
}

// CompleteAudit records the outcome once. Scores run 0 to 100.
func (s *service) CompleteAudit(ctx context.Context, auditID uuid.UUID, score int, findings *string) (*models.SafetyAudit, error) {
	if score < 0 || score > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "score must be between 0 and 100")
	}
	rows, err := s.repo.CompleteAudit(ctx, auditID, score, findings, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: complete audit")
	}
	if rows == 0 {
		if _, err := s.repo.FindAuditByID(ctx, auditID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "audit not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load audit")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "audit already completed")
	}
	audit, err := s.repo.FindAuditByID(ctx, auditID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload audit")
	}
	return audit, nil
}

// ListAudits returns a project's audits.
func (s *service) ListAudits(ctx context.Context, projectID uuid.UUID) ([]models.SafetyAudit, error) {
	rows, err := s.repo.ListAudits(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list audits")
	}
	return rows, nil
}

// CreateChecklist stores a named checklist.
func (s *service) CreateChecklist(ctx context.Context, actorID uuid.UUID, input ChecklistInput) (*models.SafetyChecklist, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checklist title is required")
	}
	items := input.Items
	if len(items) == 0 {
		items = json.RawMessage("[]")
	}
	if !json.Valid(items) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checklist items must be valid JSON")
	}

	checklist, err := s.repo.CreateChecklist(ctx, &models.SafetyChecklist{
		ProjectID: input.ProjectID,
		Title:     title,
		Items:     items,
		CreatedBy: actorID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert checklist")
	}
	return checklist, nil
}

// UpdateChecklistItems replaces a checklist's JSON payload.
func (s *service) UpdateChecklistItems(ctx context.Context, checklistID uuid.UUID, items json.RawMessage) (*models.SafetyChecklist, error) {
	if !json.Valid(items) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checklist items must be valid JSON")
	}
	rows, err := s.repo.UpdateChecklistItems(ctx, checklistID, items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update checklist")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checklist not found")
	}
	checklist, err := s.repo.FindChecklistByID(ctx, checklistID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload checklist")
	}
	return checklist, nil
}

// ListChecklists returns checklists, optionally scoped to a project.
func (s *service) ListChecklists(ctx context.Context, projectID *uuid.UUID) ([]models.SafetyChecklist, error) {
	rows, err := s.repo.ListChecklists(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list checklists")
	}
	return rows, nil
}

// ScheduleInspection books a site visit.
func (s *service) ScheduleInspection(ctx context.Context, input InspectionInput) (*models.SiteInspection, error) {
	if input.InspectionDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inspection_date is required")
	}
	if input.InspectorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inspector_id is required")
	}

	inspection, err := s.repo.CreateInspection(ctx, &models.SiteInspection{
		ProjectID:      input.ProjectID,
		InspectionDate: input.InspectionDate,
		InspectorID:    input.InspectorID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert inspection")
	}
	return inspection, nil
}

// RecordInspectionOutcome writes the verdict once.
func (s *service) RecordInspectionOutcome(ctx context.Context, inspectionID uuid.UUID, passed bool, notes *string, followUp *time.Time) (*models.SiteInspection, error) {
	if !passed && followUp == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failed inspections need a follow_up_date")
	}
	rows, err := s.repo.RecordInspectionOutcome(ctx, inspectionID, passed, notes, followUp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: record inspection outcome")
	}
	if rows == 0 {
		if _, err := s.repo.FindInspectionByID(ctx, inspectionID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inspection not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load inspection")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inspection outcome already recorded")
	}
	inspection, err := s.repo.FindInspectionByID(ctx, inspectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload inspection")
	}
	return inspection, nil
}

// ListInspections returns a project's inspections.
func (s *service) ListInspections(ctx context.Context, projectID uuid.UUID) ([]models.SiteInspection, error) {
	rows, err := s.repo.ListInspections(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list inspections")
	}
	return rows, nil
}

// numberingAttempts bounds the retries when a derived NCR number loses a
// race against a concurrent insert.
const numberingAttempts = 3

// RaiseNCR opens a numbered non-conformance report. Numbering is
// sequential within the year, assigned inside the insert transaction.
func (s *service) RaiseNCR(ctx context.Context, actorID uuid.UUID, input NCRInput) (*models.NCRReport, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report title is required")
	}
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project_id is required")
	}

	// Concurrent raises can derive the same number; the unique index rejects
	// the loser, which retries with the next candidate.
	var result *models.NCRReport
	var err error
	for attempt := 0; attempt < numberingAttempts; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			year := time.Now().UTC().Year()
			count, err := repo.CountNCRsInYear(ctx, year)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count reports")
			}

			result, err = repo.CreateNCR(ctx, &models.NCRReport{
				ProjectID:   input.ProjectID,
				NCRNumber:   fmt.Sprintf("NCR-%d-%04d", year, count+1+int64(attempt)),
				Title:       title,
				Description: input.Description,
				Status:      enums.NCRStatusOpen,
				RaisedBy:    actorID,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert report")
			}
			return nil
		})
		if err == nil {
			return result, nil
		}
		if !db.IsUniqueViolation(err, "idx_ncr_reports_ncr_number") {
			return nil, err
		}
	}
	return nil, err
}

// GetNCR returns one report.
func (s *service) GetNCR(ctx context.Context, reportID uuid.UUID) (*models.NCRReport, error) {
	report, err := s.repo.FindNCRByID(ctx, reportID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load report")
	}
	return report, nil
}

// ListNCRs returns filtered reports.
func (s *service) ListNCRs(ctx context.Context, filters NCRFilters) ([]models.NCRReport, error) {
	rows, err := s.repo.ListNCRs(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list reports")
	}
	return rows, nil
}

// UpdateNCRStatus moves the report along its lifecycle. Closing stamps
// closed_at and requires a corrective action on record.
func (s *service) UpdateNCRStatus(ctx context.Context, reportID uuid.UUID, next enums.NCRStatus, correctiveAction *string) (*models.NCRReport, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", next))
	}
	report, err := s.GetNCR(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !report.Status.CanTransition(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move report from %s to %s", report.Status, next))
	}

	extra := map[string]any{}
	if correctiveAction != nil {
		extra["corrective_action"] = *correctiveAction
	}
	if next == enums.NCRStatusClosed {
		if correctiveAction == nil && report.CorrectiveAction == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "closing a report requires a corrective action")
		}
		extra["closed_at"] = time.Now().UTC()
	}

	rows, err := s.repo.TransitionNCRStatus(ctx, reportID, report.Status, next, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transition report")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "report changed concurrently")
	}
	return s.GetNCR(ctx, reportID)
}
