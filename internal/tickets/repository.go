package tickets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository persists client tickets.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new ticket row.
func (r *Repository) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

// Update saves the ticket row.
func (r *Repository) Update(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if err := r.db.WithContext(ctx).Save(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

// FindByID loads one ticket.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Filters narrows ticket listings.
type Filters struct {
	ProjectID  *uuid.UUID
	Status     *enums.TicketStatus
	Priority   *enums.PriorityLevel
	AssignedTo *uuid.UUID
	CreatedBy  *uuid.UUID
}

// List returns tickets newest first.
func (r *Repository) List(ctx context.Context, filters Filters) ([]models.Ticket, error) {
	qb := r.db.WithContext(ctx).Model(&models.Ticket{})
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		qb = qb.Where("priority = ?", *filters.Priority)
	}
	if filters.AssignedTo != nil {
		qb = qb.Where("assigned_to = ?", *filters.AssignedTo)
	}
	if filters.CreatedBy != nil {
		qb = qb.Where("created_by = ?", *filters.CreatedBy)
	}
	var rows []models.Ticket
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// TransitionStatus flips the ticket status pinned to its current value.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TicketStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}
