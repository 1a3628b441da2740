package contact

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:contact_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.ContactMessage{}, &models.NewsletterSubscriber{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(gdb))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, gdb
}

func TestSubmitAndHandleMessage(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	message, err := svc.SubmitMessage(ctx, MessageInput{
		Name:    "Jordan Wells",
		Email:   "jordan@example.com",
		Message: "Looking for a quote on a warehouse extension.",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if message.Handled {
		t.Fatal("new message should be unhandled")
	}

	unhandled := false
	rows, err := svc.ListMessages(ctx, MessageFilters{Handled: &unhandled})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one unhandled message, got %d", len(rows))
	}

	if err := svc.MarkHandled(ctx, message.ID); err != nil {
		t.Fatalf("mark handled: %v", err)
	}
	err = svc.MarkHandled(ctx, message.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("second handle should be not found, got %v", err)
	}
}

func TestSubmitMessageValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []MessageInput{
		{Email: "x@example.com", Message: "no name"},
		{Name: "No Email", Message: "hello"},
		{Name: "Bad Email", Email: "not-an-address", Message: "hello"},
		{Name: "No Body", Email: "x@example.com"},
	}
	for _, input := range cases {
		_, err := svc.SubmitMessage(ctx, input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("input %+v should fail validation, got %v", input, err)
		}
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	t.Parallel()

	svc, gdb := newTestService(t)
	ctx := context.Background()

	first, err := svc.Subscribe(ctx, "News.Reader@Example.com")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if first.Email != "news.reader@example.com" {
		t.Fatalf("email should be normalized, got %s", first.Email)
	}

	second, err := svc.Subscribe(ctx, "news.reader@example.com")
	if err != nil {
		t.Fatalf("repeat subscribe: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("repeat signup should return the existing record")
	}

	var count int64
	if err := gdb.Model(&models.NewsletterSubscriber{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one subscriber row, got %d", count)
	}

	if _, err := svc.Subscribe(ctx, "not-an-address"); err == nil {
		t.Fatal("invalid email should be rejected")
	}
}
