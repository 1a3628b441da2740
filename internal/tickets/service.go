package tickets

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

// Service exposes ticketing operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*models.Ticket, error)
	Update(ctx context.Context, ticketID uuid.UUID, input UpdateInput) (*models.Ticket, error)
	Get(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, filters Filters) ([]models.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID uuid.UUID, next enums.TicketStatus) (*models.Ticket, error)
	Assign(ctx context.Context, ticketID uuid.UUID, userID *uuid.UUID) (*models.Ticket, error)
}

// CreateInput holds the validated payload to raise a ticket.
type CreateInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description string
	Priority    enums.PriorityLevel
}

// UpdateInput mutates descriptive ticket fields. Status moves through
// UpdateStatus only.
type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *enums.PriorityLevel
}

type service struct {
	repo *Repository
}

// NewService constructs a tickets service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	return &service{repo: repo}, nil
}

// Create raises a new open ticket.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*models.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket title is required")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket description is required")
	}
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project_id is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = enums.PriorityLevelMedium
	}
	if !priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", priority))
	}

	ticket := &models.Ticket{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: description,
		Status:      enums.TicketStatusOpen,
		Priority:    priority,
		CreatedBy:   actorID,
	}
	created, err := s.repo.Create(ctx, ticket)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert ticket")
	}
	return created, nil
}

// Update mutates descriptive fields.
func (s *service) Update(ctx context.Context, ticketID uuid.UUID, input UpdateInput) (*models.Ticket, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket title cannot be empty")
		}
		ticket.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket description cannot be empty")
		}
		ticket.Description = description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", *input.Priority))
		}
		ticket.Priority = *input.Priority
	}

	updated, err := s.repo.Update(ctx, ticket)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update ticket")
	}
	return updated, nil
}

// Get returns one ticket.
func (s *service) Get(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.repo.FindByID(ctx, ticketID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load ticket")
	}
	return ticket, nil
}

// List returns filtered tickets.
func (s *service) List(ctx context.Context, filters Filters) ([]models.Ticket, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list tickets")
	}
	return rows, nil
}

// UpdateStatus moves the ticket along its lifecycle. Resolved tickets
// may reopen; closed is terminal.
func (s *service) UpdateStatus(ctx context.Context, ticketID uuid.UUID, next enums.TicketStatus) (*models.Ticket, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", next))
	}
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.CanTransition(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move ticket from %s to %s", ticket.Status, next))
	}

	rows, err := s.repo.TransitionStatus(ctx, ticketID, ticket.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transition ticket")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket changed concurrently")
	}
	return s.Get(ctx, ticketID)
}

// Assign sets or clears the handler.
func (s *service) Assign(ctx context.Context, ticketID uuid.UUID, userID *uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.AssignedTo = userID
	updated, err := s.repo.Update(ctx, ticket)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: assign ticket")
	}
	return updated, nil
}
