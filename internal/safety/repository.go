package safety

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository persists incidents, audits, checklists, inspections and
// non-conformance reports.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateIncident inserts a new incident row.
func (r *Repository) CreateIncident(ctx context.Context, incident *models.Incident) (*models.Incident, error) {
	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(incident).Error; err != nil {
		return nil, err
	}
	return incident, nil
}

// FindIncidentByID loads one incident.
func (r *Repository) FindIncidentByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	var incident models.Incident
	if err := r.db.WithContext(ctx).First(&incident, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &incident, nil
}

// IncidentFilters narrows incident listings.
type IncidentFilters struct {
	ProjectID *uuid.UUID
	Severity  *enums.PriorityLevel
	Resolved  *bool
}

// ListIncidents returns incidents most recent first.
func (r *Repository) ListIncidents(ctx context.Context, filters IncidentFilters) ([]models.Incident, error) {
	qb := r.db.WithContext(ctx).Model(&models.Incident{})
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Severity != nil {
		qb = qb.Where("severity = ?", *filters.Severity)
	}
	if filters.Resolved != nil {
		qb = qb.Where("resolved = ?", *filters.Resolved)
	}
	var rows []models.Incident
	err := qb.Order("occurred_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// ResolveIncident stamps resolution on an open incident.
func (r *Repository) ResolveIncident(ctx context.Context, id uuid.UUID, resolvedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]any{"resolved": true, "resolved_at": resolvedAt})
	return result.RowsAffected, result.Error
}

// CreateAudit inserts a scheduled audit row.
func (r *Repository) CreateAudit(ctx context.Context, audit *models.SafetyAudit) (*models.SafetyAudit, error) {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(audit).Error; err != nil {
		return nil, err
	}
	return audit, nil
}

// FindAuditByID loads one audit.
func (r *Repository) FindAuditByID(ctx context.Context, id uuid.UUID) (*models.SafetyAudit, error) {
	var audit models.SafetyAudit
	if err := r.db.WithContext(ctx).First(&audit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &audit, nil
}

// ListAudits returns a project's audits by audit date.
func (r *Repository) ListAudits(ctx context.Context, projectID uuid.UUID) ([]models.SafetyAudit, error) {
	var rows []models.SafetyAudit
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("audit_date DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// CompleteAudit records score and findings on an uncompleted audit.
func (r *Repository) CompleteAudit(ctx context.Context, id uuid.UUID, score int, findings *string, completedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SafetyAudit{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]any{
			"score":        score,
			"findings":     findings,
			"completed_at": completedAt,
		})
	return result.RowsAffected, result.Error
}

// CreateChecklist inserts a checklist row.
func (r *Repository) CreateChecklist(ctx context.Context, checklist *models.SafetyChecklist) (*models.SafetyChecklist, error) {
	if checklist.ID == uuid.Nil {
		checklist.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(checklist).Error; err != nil {
		return nil, err
	}
	return checklist, nil
}

// FindChecklistByID loads one checklist.
func (r *Repository) FindChecklistByID(ctx context.Context, id uuid.UUID) (*models.SafetyChecklist, error) {
	var checklist models.SafetyChecklist
	if err := r.db.WithContext(ctx).First(&checklist, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &checklist, nil
}

// UpdateChecklistItems replaces the JSON items payload.
func (r *Repository) UpdateChecklistItems(ctx context.Context, id uuid.UUID, items []byte) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SafetyChecklist{}).
		Where("id = ?", id).
		Update("items", items)
	return result.RowsAffected, result.Error
}

// ListChecklists returns checklists, optionally scoped to a project.
func (r *Repository) ListChecklists(ctx context.Context, projectID *uuid.UUID) ([]models.SafetyChecklist, error) {
	qb := r.db.WithContext(ctx).Model(&models.SafetyChecklist{})
	if projectID != nil {
		qb = qb.Where("project_id = ?", *projectID)
	}
	var rows []models.SafetyChecklist
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// CreateInspection inserts an inspection row.
func (r *Repository) CreateInspection(ctx context.Context, inspection *models.SiteInspection) (*models.SiteInspection, error) {
	if inspection.ID == uuid.Nil {
		inspection.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(inspection).Error; err != nil {
		return nil, err
	}
	return inspection, nil
}

// FindInspectionByID loads one inspection.
func (r *Repository) FindInspectionByID(ctx context.Context, id uuid.UUID) (*models.SiteInspection, error) {
	var inspection models.SiteInspection
	if err := r.db.WithContext(ctx).First(&inspection, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inspection, nil
}

// RecordInspectionOutcome writes the pass/fail verdict on a pending
// inspection.
func (r *Repository) RecordInspectionOutcome(ctx context.Context, id uuid.UUID, passed bool, notes *string, followUp *time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SiteInspection{}).
		Where("id = ? AND passed IS NULL", id).
		Updates(map[string]any{
			"passed":         passed,
			"notes":          notes,
			"follow_up_date": followUp,
		})
	return result.RowsAffected, result.Error
}

// ListInspections returns a project's inspections by visit date.
func (r *Repository) ListInspections(ctx context.Context, projectID uuid.UUID) ([]models.SiteInspection, error) {
	var rows []models.SiteInspection
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("inspection_date DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// CreateNCR inserts a non-conformance report.
func (r *Repository) CreateNCR(ctx context.Context, report *models.NCRReport) (*models.NCRReport, error) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

// FindNCRByID loads one report.
func (r *Repository) FindNCRByID(ctx context.Context, id uuid.UUID) (*models.NCRReport, error) {
	var report models.NCRReport
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// NCRFilters narrows report listings.
type NCRFilters struct {
	ProjectID *uuid.UUID
	Status    *enums.NCRStatus
}

// ListNCRs returns reports newest first.
func (r *Repository) ListNCRs(ctx context.Context, filters NCRFilters) ([]models.NCRReport, error) {
	qb := r.db.WithContext(ctx).Model(&models.NCRReport{})
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	var rows []models.NCRReport
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// TransitionNCRStatus flips the report status pinned to its current
// value, applying extra column writes in the same statement.
func (r *Repository) TransitionNCRStatus(ctx context.Context, id uuid.UUID, from, to enums.NCRStatus, extra map[string]any) (int64, error) {
	updates := map[string]any{"status": to}
	for column, value := range extra {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.NCRReport{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// CountNCRsInYear supports sequential report numbering.
func (r *Repository) CountNCRsInYear(ctx context.Context, year int) (int64, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NCRReport{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}
