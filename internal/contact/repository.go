package contact

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
)

// Repository persists contact form submissions and newsletter signups.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateMessage inserts a contact form submission.
func (r *Repository) CreateMessage(ctx context.Context, message *models.ContactMessage) (*models.ContactMessage, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// MessageFilters narrows submission listings.
type MessageFilters struct {
	Handled *bool
}

// ListMessages returns submissions newest first.
func (r *Repository) ListMessages(ctx context.Context, filters MessageFilters) ([]models.ContactMessage, error) {
	qb := r.db.WithContext(ctx).Model(&models.ContactMessage{})
	if filters.Handled != nil {
		qb = qb.Where("handled = ?", *filters.Handled)
	}
	var rows []models.ContactMessage
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// MarkHandled flags an unhandled submission.
func (r *Repository) MarkHandled(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ContactMessage{}).
		Where("id = ? AND handled = ?", id, false).
		Update("handled", true)
	return result.RowsAffected, result.Error
}

// CreateSubscriber inserts a newsletter signup.
func (r *Repository) CreateSubscriber(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	subscriber := &models.NewsletterSubscriber{
		ID:    uuid.New(),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
	if err := r.db.WithContext(ctx).Create(subscriber).Error; err != nil {
		return nil, err
	}
	return subscriber, nil
}

// FindSubscriberByEmail loads a signup by normalized email.
func (r *Repository) FindSubscriberByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	var subscriber models.NewsletterSubscriber
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&subscriber).Error
	if err != nil {
		return nil, err
	}
	return &subscriber, nil
}
