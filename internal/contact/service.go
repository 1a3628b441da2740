package contact

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

// Service exposes the public contact surface.
type Service interface {
	SubmitMessage(ctx context.Context, input MessageInput) (*models.ContactMessage, error)
	ListMessages(ctx context.Context, filters MessageFilters) ([]models.ContactMessage, error)
	MarkHandled(ctx context.Context, messageID uuid.UUID) error
	Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
}

// MessageInput is a contact form submission.
type MessageInput struct {
	Name    string
	Email   string
	Phone   *string
	Subject *string
	Message string
}

type service struct {
	repo *Repository
}

// NewService constructs a contact service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contact repository required")
	}
	return &service{repo: repo}, nil
}

// SubmitMessage stores a contact form submission.
func (s *service) SubmitMessage(ctx context.Context, input MessageInput) (*models.ContactMessage, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Message)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	message, err := s.repo.CreateMessage(ctx, &models.ContactMessage{
		Name:    name,
		Email:   email,
		Phone:   input.Phone,
		Subject: input.Subject,
		Message: body,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert message")
	}
	return message, nil
}

// ListMessages returns filtered submissions.
func (s *service) ListMessages(ctx context.Context, filters MessageFilters) ([]models.ContactMessage, error) {
	rows, err := s.repo.ListMessages(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list messages")
	}
	return rows, nil
}

// MarkHandled flags a submission once.
func (s *service) MarkHandled(ctx context.Context, messageID uuid.UUID) error {
	rows, err := s.repo.MarkHandled(ctx, messageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark handled")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "message not found or already handled")
	}
	return nil
}

// Subscribe signs an email up for the newsletter. Repeat signups return
// the existing record rather than an error.
func (s *service) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	subscriber, err := s.repo.CreateSubscriber(ctx, normalized)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, lookupErr := s.repo.FindSubscriberByEmail(ctx, normalized)
			if lookupErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "db: load subscriber")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert subscriber")
	}
	return subscriber, nil
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	return normalized, nil
}
