package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/api/responses"
	"github.com/apexbuild/apexbuild-backend/api/validators"
	"github.com/apexbuild/apexbuild-backend/internal/safety"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
	"github.com/apexbuild/apexbuild-backend/pkg/logger"
)

type incidentReportRequest struct {
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	Title       string     `json:"title" validate:"required"`
	Description *string    `json:"description,omitempty"`
	Severity    string     `json:"severity,omitempty"`
	Location    *string    `json:"location,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at" validate:"required"`
}

func IncidentReport(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body incidentReportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := safety.IncidentInput{
			ProjectID:   body.ProjectID,
			Title:       body.Title,
			Description: body.Description,
			Location:    body.Location,
			OccurredAt:  body.OccurredAt,
		}
		if body.Severity != "" {
			severity, err := enums.ParsePriorityLevel(body.Severity)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid severity"))
				return
			}
			input.Severity = severity
		}

		incident, err := svc.ReportIncident(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, incident)
	}
}

func IncidentResolve(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		incidentID, err := pathUUID(r, "incidentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		incident, err := svc.ResolveIncident(r.Context(), incidentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, incident)
	}
}

func IncidentList(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		filters := safety.IncidentFilters{}
		projectID, err := validators.ParseQueryUUID(r, "project_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.ProjectID = projectID
		if raw := validators.QueryString(r, "severity"); raw != nil {
			severity, err := enums.ParsePriorityLevel(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid severity"))
				return
			}
			filters.Severity = &severity
		}
		resolved, err := validators.ParseQueryBool(r, "resolved")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.Resolved = resolved

		rows, err := svc.ListIncidents(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type auditScheduleRequest struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	AuditDate time.Time `json:"audit_date" validate:"required"`
	AuditorID uuid.UUID `json:"auditor_id" validate:"required"`
}

func AuditSchedule(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		var body auditScheduleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		audit, err := svc.ScheduleAudit(r.Context(), safety.AuditInput{
			ProjectID: body.ProjectID,
			Title:     body.Title,
			AuditDate: body.AuditDate,
			AuditorID: body.AuditorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, audit)
	}
}

type auditCompleteRequest struct {
	Score    int     `json:"score" validate:"min=0,max=100"`
	Findings *string `json:"findings,omitempty"`
}

func AuditComplete(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		auditID, err := pathUUID(r, "auditId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auditCompleteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		audit, err := svc.CompleteAudit(r.Context(), auditID, body.Score, body.Findings)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, audit)
	}
}

func AuditList(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		projectID, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListAudits(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type checklistCreateRequest struct {
	ProjectID *uuid.UUID      `json:"project_id,omitempty"`
	Title     string          `json:"title" validate:"required"`
	Items     json.RawMessage `json:"items,omitempty"`
}

func ChecklistCreate(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checklistCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checklist, err := svc.CreateChecklist(r.Context(), actor, safety.ChecklistInput{
			ProjectID: body.ProjectID,
			Title:     body.Title,
			Items:     body.Items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checklist)
	}
}

type checklistItemsRequest struct {
	Items json.RawMessage `json:"items" validate:"required"`
}

func ChecklistUpdateItems(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		checklistID, err := pathUUID(r, "checklistId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checklistItemsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checklist, err := svc.UpdateChecklistItems(r.Context(), checklistID, body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, checklist)
	}
}

func ChecklistList(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		projectID, err := validators.ParseQueryUUID(r, "project_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListChecklists(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type inspectionScheduleRequest struct {
	ProjectID      uuid.UUID `json:"project_id" validate:"required"`
	InspectionDate time.Time `json:"inspection_date" validate:"required"`
	InspectorID    uuid.UUID `json:"inspector_id" validate:"required"`
}

func InspectionSchedule(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		var body inspectionScheduleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inspection, err := svc.ScheduleInspection(r.Context(), safety.InspectionInput{
			ProjectID:      body.ProjectID,
			InspectionDate: body.InspectionDate,
			InspectorID:    body.InspectorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, inspection)
	}
}

type inspectionOutcomeRequest struct {
	Passed   *bool      `json:"passed" validate:"required"`
	Notes    *string    `json:"notes,omitempty"`
	FollowUp *time.Time `json:"follow_up,omitempty"`
}

// InspectionRecordOutcome records pass or fail. A failed inspection needs
// a follow-up date.
func InspectionRecordOutcome(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		inspectionID, err := pathUUID(r, "inspectionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body inspectionOutcomeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inspection, err := svc.RecordInspectionOutcome(r.Context(), inspectionID, *body.Passed, body.Notes, body.FollowUp)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inspection)
	}
}

func InspectionList(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		projectID, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListInspections(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type ncrRaiseRequest struct {
	ProjectID   uuid.UUID `json:"project_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description *string   `json:"description,omitempty"`
}

func NCRRaise(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body ncrRaiseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.RaiseNCR(r.Context(), actor, safety.NCRInput{
			ProjectID:   body.ProjectID,
			Title:       body.Title,
			Description: body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, report)
	}
}

func NCRGet(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		reportID, err := pathUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.GetNCR(r.Context(), reportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

func NCRList(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		filters := safety.NCRFilters{}
		projectID, err := validators.ParseQueryUUID(r, "project_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.ProjectID = projectID
		if raw := validators.QueryString(r, "status"); raw != nil {
			status, err := enums.ParseNCRStatus(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}

		rows, err := svc.ListNCRs(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type ncrStatusRequest struct {
	Status           string  `json:"status" validate:"required"`
	CorrectiveAction *string `json:"corrective_action,omitempty"`
}

func NCRUpdateStatus(svc safety.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "safety service unavailable"))
			return
		}

		reportID, err := pathUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body ncrStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next, err := enums.ParseNCRStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		report, err := svc.UpdateNCRStatus(r.Context(), reportID, next, body.CorrectiveAction)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
