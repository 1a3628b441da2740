package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/api/responses"
	"github.com/apexbuild/apexbuild-backend/api/validators"
	"github.com/apexbuild/apexbuild-backend/internal/documents"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
	"github.com/apexbuild/apexbuild-backend/pkg/logger"
)

type documentUploadRequest struct {
	ProjectID   uuid.UUID `json:"project_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Type        string    `json:"type,omitempty"`
	Category    string    `json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
	FileURL     string    `json:"file_url" validate:"required"`
	FileSize    *int64    `json:"file_size,omitempty"`
}

// DocumentUpload registers a stored file. Re-uploading the same name on a
// project bumps the version instead of creating a second row.
func DocumentUpload(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body documentUploadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := documents.UploadInput{
			ProjectID:   body.ProjectID,
			Name:        body.Name,
			Category:    body.Category,
			Description: body.Description,
			FileURL:     body.FileURL,
			FileSize:    body.FileSize,
		}
		if body.Type != "" {
			docType, err := enums.ParseDocumentType(body.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid document type"))
				return
			}
			input.Type = docType
		}

		document, err := svc.Upload(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, document)
	}
}

func DocumentGet(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		documentID, err := pathUUID(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		document, err := svc.Get(r.Context(), documentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, document)
	}
}

func DocumentList(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		filters := documents.Filters{}
		projectID, err := validators.ParseQueryUUID(r, "project_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.ProjectID = projectID
		if raw := validators.QueryString(r, "type"); raw != nil {
			docType, err := enums.ParseDocumentType(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid document type"))
				return
			}
			filters.Type = &docType
		}
		filters.Category = validators.QueryString(r, "category")

		rows, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

func DocumentDelete(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		documentID, err := pathUUID(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), documentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
