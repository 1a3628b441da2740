package documents

import (
	"context"
	"fmt"
	"strings"

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

// Service exposes document metadata operations.
type Service interface {
	Upload(ctx context.Context, actorID uuid.UUID, input UploadInput) (*models.Document, error)
	Get(ctx context.Context, documentID uuid.UUID) (*models.Document, error)
	List(ctx context.Context, filters Filters) ([]models.Document, error)
	Delete(ctx context.Context, documentID uuid.UUID) error
}

// UploadInput holds the validated payload for a stored file.
type UploadInput struct {
	ProjectID   uuid.UUID
	Name        string
	Type        enums.DocumentType
	Category    string
	Description *string
	FileURL     string
	FileSize    *int64
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a documents service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("documents repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Upload records file metadata. Re-uploading a name already present on
// the project bumps its version in place instead of adding a sibling.
func (s *service) Upload(ctx context.Context, actorID uuid.UUID, input UploadInput) (*models.Document, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document name is required")
	}
	if strings.TrimSpace(input.FileURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_url is required")
	}
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project_id is required")
	}
	docType := input.Type
	if docType == "" {
		docType = enums.DocumentTypeOther
	}
	if !docType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid document type %q", docType))
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = "general"
	}
	if input.FileSize != nil && *input.FileSize < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_size cannot be negative")
	}

	var result *models.Document
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindByProjectAndName(ctx, input.ProjectID, name)
		if err != nil && !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: look up document")
		}
		if existing != nil {
			existing.Type = docType
			existing.Category = category
			existing.Description = input.Description
			existing.FileURL = input.FileURL
			existing.FileSize = input.FileSize
			existing.Version++
			existing.UploadedBy = actorID
			result, err = repo.Update(ctx, existing)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: version document")
			}
			return nil
		}

		result, err = repo.Create(ctx, &models.Document{
			ProjectID:   input.ProjectID,
			Name:        name,
			Type:        docType,
			Category:    category,
			Description: input.Description,
			FileURL:     input.FileURL,
			FileSize:    input.FileSize,
			Version:     1,
			UploadedBy:  actorID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert document")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns one document.
func (s *service) Get(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load document")
	}
	return doc, nil
}

// List returns filtered documents.
func (s *service) List(ctx context.Context, filters Filters) ([]models.Document, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list documents")
	}
	return rows, nil
}

// Delete removes one document's metadata.
func (s *service) Delete(ctx context.Context, documentID uuid.UUID) error {
	rows, err := s.repo.Delete(ctx, documentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete document")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	return nil
}
