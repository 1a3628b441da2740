package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/api/responses"
	"github.com/apexbuild/apexbuild-backend/api/validators"
	"github.com/apexbuild/apexbuild-backend/internal/equipment"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
	"github.com/apexbuild/apexbuild-backend/pkg/logger"
)

type equipmentCreateRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Location    *string `json:"location,omitempty"`
}

func EquipmentCreate(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		var body equipmentCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pool, err := svc.Create(r.Context(), equipment.CreateInput{
			Name:        body.Name,
			Description: body.Description,
			Quantity:    body.Quantity,
			Location:    body.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, pool)
	}
}

type equipmentUpdateRequest struct {
	Name            *string    `json:"name,omitempty" validate:"omitempty,min=1"`
	Description     *string    `json:"description,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Location        *string    `json:"location,omitempty"`
	LastMaintenance *time.Time `json:"last_maintenance,omitempty"`
	NextMaintenance *time.Time `json:"next_maintenance,omitempty"`
}

func EquipmentUpdate(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		equipmentID, err := pathUUID(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body equipmentUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := equipment.UpdateInput{
			Name:            body.Name,
			Description:     body.Description,
			Location:        body.Location,
			LastMaintenance: body.LastMaintenance,
			NextMaintenance: body.NextMaintenance,
		}
		if body.Status != nil {
			status, err := enums.ParseEquipmentStatus(*body.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		pool, err := svc.Update(r.Context(), equipmentID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pool)
	}
}

func EquipmentDelete(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		equipmentID, err := pathUUID(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), equipmentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func EquipmentGet(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		equipmentID, err := pathUUID(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pool, err := svc.Get(r.Context(), equipmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pool)
	}
}

func EquipmentList(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		filters := equipment.Filters{}
		if raw := validators.QueryString(r, "status"); raw != nil {
			status, err := enums.ParseEquipmentStatus(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}

		rows, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type equipmentAllocateRequest struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// EquipmentAllocate reserves units from the pool for a project.
func EquipmentAllocate(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		equipmentID, err := pathUUID(r, "equipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body equipmentAllocateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allocation, err := svc.Allocate(r.Context(), actor, equipment.AllocateInput{
			EquipmentID: equipmentID,
			ProjectID:   body.ProjectID,
			Quantity:    body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, allocation)
	}
}

// EquipmentReturn closes an open allocation and releases its units.
func EquipmentReturn(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		allocationID, err := pathUUID(r, "allocationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allocation, err := svc.Return(r.Context(), allocationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, allocation)
	}
}

func EquipmentListAllocations(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		filters := equipment.AllocationFilters{}
		equipmentID, err := validators.ParseQueryUUID(r, "equipment_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.EquipmentID = equipmentID
		projectID, err := validators.ParseQueryUUID(r, "project_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.ProjectID = projectID
		openOnly, err := validators.ParseQueryBool(r, "open")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if openOnly != nil {
			filters.OpenOnly = *openOnly
		}

		rows, err := svc.ListAllocations(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
