package documents

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

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:documents_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Document{}, &models.Project{}); err != nil {
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

func TestUploadNewDocument(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	projectID := uuid.New()

	doc, err := svc.Upload(ctx, uuid.New(), UploadInput{
		ProjectID: projectID,
		Name:      "foundation-plan.pdf",
		Type:      enums.DocumentTypeBlueprint,
		FileURL:   "https://files.example.com/foundation-plan.pdf",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.Version != 1 {
		t.Fatalf("first upload should be version 1, got %d", doc.Version)
	}
	if doc.Category != "general" {
		t.Fatalf("category should default to general, got %q", doc.Category)
	}
}

func TestReuploadBumpsVersion(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()
	projectID := uuid.New()
	uploader := uuid.New()

	first, err := svc.Upload(ctx, uploader, UploadInput{
		ProjectID: projectID,
		Name:      "site-layout.dwg",
		Type:      enums.DocumentTypeDrawing,
		FileURL:   "https://files.example.com/site-layout-v1.dwg",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	reviser := uuid.New()
	second, err := svc.Upload(ctx, reviser, UploadInput{
		ProjectID: projectID,
		Name:      "site-layout.dwg",
		Type:      enums.DocumentTypeDrawing,
		FileURL:   "https://files.example.com/site-layout-v2.dwg",
	})
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("re-upload should version the existing row, not add one")
	}
	if second.Version != 2 {
		t.Fatalf("re-upload should be version 2, got %d", second.Version)
	}
	if second.FileURL != "https://files.example.com/site-layout-v2.dwg" {
		t.Fatalf("file_url should point at the new upload, got %q", second.FileURL)
	}
	if second.UploadedBy != reviser {
		t.Fatal("uploaded_by should follow the latest uploader")
	}

	var count int64
	if err := gdb.Model(&models.Document{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
		t.Fatalf("count documents: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single document row, got %d", count)
	}

	// The same name on another project is unrelated.
	other, err := svc.Upload(ctx, uploader, UploadInput{
		ProjectID: uuid.New(),
		Name:      "site-layout.dwg",
		FileURL:   "https://files.example.com/other-site-layout.dwg",
	})
	if err != nil {
		t.Fatalf("upload to other project: %v", err)
	}
	if other.Version != 1 {
		t.Fatalf("other project upload should start at version 1, got %d", other.Version)
	}
}

func TestUploadValidation(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	negative := int64(-1)
	cases := []UploadInput{
		{ProjectID: uuid.New(), FileURL: "https://files.example.com/x"},
		{ProjectID: uuid.New(), Name: "x.pdf"},
		{Name: "x.pdf", FileURL: "https://files.example.com/x"},
		{ProjectID: uuid.New(), Name: "x.pdf", FileURL: "https://files.example.com/x", Type: "spreadsheet"},
		{ProjectID: uuid.New(), Name: "x.pdf", FileURL: "https://files.example.com/x", FileSize: &negative},
	}
	for _, input := range cases {
		_, err := svc.Upload(ctx, uuid.New(), input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("input %+v should fail validation, got %v", input, err)
		}
	}
}

func TestDeleteDocument(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, uuid.New(), UploadInput{
		ProjectID: uuid.New(),
		Name:      "permit-scan.pdf",
		Type:      enums.DocumentTypePermit,
		FileURL:   "https://files.example.com/permit-scan.pdf",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = svc.Delete(ctx, doc.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}
