package documents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository persists project document metadata.
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

// Create inserts a new document row.
func (r *Repository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// Update saves the document row.
func (r *Repository) Update(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document and reports whether a row matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Document{})
	return result.RowsAffected, result.Error
}

// FindByID loads one document.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByProjectAndName loads the document a re-upload would version.
func (r *Repository) FindByProjectAndName(ctx context.Context, projectID uuid.UUID, name string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND name = ?", projectID, name).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Filters narrows document listings.
type Filters struct {
	ProjectID *uuid.UUID
	Type      *enums.DocumentType
	Category  *string
}

// List returns documents newest first.
func (r *Repository) List(ctx context.Context, filters Filters) ([]models.Document, error) {
	qb := r.db.WithContext(ctx).Model(&models.Document{})
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Type != nil {
		qb = qb.Where("type = ?", *filters.Type)
	}
	if filters.Category != nil {
		qb = qb.Where("category = ?", *filters.Category)
	}
	var rows []models.Document
	err := qb.Order("updated_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}
