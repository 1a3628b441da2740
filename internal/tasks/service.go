package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

// Service exposes task board operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*models.Task, error)
	Update(ctx context.Context, taskID uuid.UUID, input UpdateInput) (*models.Task, error)
	Delete(ctx context.Context, taskID uuid.UUID) error
	Get(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	List(ctx context.Context, filters Filters) ([]models.Task, error)
	UpdateStatus(ctx context.Context, taskID uuid.UUID, next enums.TaskStatus) (*models.Task, error)
	Assign(ctx context.Context, taskID uuid.UUID, userID *uuid.UUID) (*models.Task, error)
}

// CreateInput holds the validated payload to open a task.
type CreateInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description *string
	Priority    enums.PriorityLevel
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
}

// UpdateInput mutates descriptive task fields. Status moves through
// UpdateStatus only.
type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *enums.PriorityLevel
	DueDate     *time.Time
}

type service struct {
	repo *Repository
}

// NewService constructs a tasks service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tasks repository required")
	}
	return &service{repo: repo}, nil
}

// Create opens a new task in todo.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task title is required")
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

	task := &models.Task{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: input.Description,
		Status:      enums.TaskStatusTodo,
		Priority:    priority,
		AssignedTo:  input.AssignedTo,
		DueDate:     input.DueDate,
		CreatedBy:   actorID,
	}
	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert task")
	}
	return created, nil
}

// Update mutates descriptive fields.
func (s *service) Update(ctx context.Context, taskID uuid.UUID, input UpdateInput) (*models.Task, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "task title cannot be empty")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", *input.Priority))
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	updated, err := s.repo.Update(ctx, task)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update task")
	}
	return updated, nil
}

// Delete removes the task.
func (s *service) Delete(ctx context.Context, taskID uuid.UUID) error {
	if _, err := s.Get(ctx, taskID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, taskID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete task")
	}
	return nil
}

// Get returns one task.
func (s *service) Get(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load task")
	}
	return task, nil
}

// List returns filtered tasks.
func (s *service) List(ctx context.Context, filters Filters) ([]models.Task, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list tasks")
	}
	return rows, nil
}

// UpdateStatus moves the task along the board. Completion stamps
// completed_at and is terminal.
func (s *service) UpdateStatus(ctx context.Context, taskID uuid.UUID, next enums.TaskStatus) (*models.Task, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", next))
	}
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.CanTransition(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move task from %s to %s", task.Status, next))
	}

	rows, err := s.repo.TransitionStatus(ctx, taskID, task.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transition task")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "task changed concurrently")
	}
	return s.Get(ctx, taskID)
}

// Assign sets or clears the assignee.
func (s *service) Assign(ctx context.Context, taskID uuid.UUID, userID *uuid.UUID) (*models.Task, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.AssignedTo = userID
	updated, err := s.repo.Update(ctx, task)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: assign task")
	}
	return updated, nil
}
