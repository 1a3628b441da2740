package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Document is file metadata attached to a project; re-uploading the same
// name bumps Version rather than creating a sibling row.
type Document struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID   uuid.UUID          `gorm:"column:project_id;type:uuid;not null;index"`
	Name        string             `gorm:"column:name;not null"`
	Type        enums.DocumentType `gorm:"column:type;type:document_type;not null;default:'other'"`
	Category    string             `gorm:"column:category;not null;default:'general'"`
	Description *string            `gorm:"column:description"`
	FileURL     string             `gorm:"column:file_url;not null"`
	FileSize    *int64             `gorm:"column:file_size"`
	Version     int                `gorm:"column:version;not null;default:1"`
	UploadedBy  uuid.UUID          `gorm:"column:uploaded_by;type:uuid;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
