package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository persists project tasks.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new task row.
func (r *Repository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// Update saves the task row.
func (r *Repository) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{}).Error
}

// FindByID loads one task.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Filters narrows task listings.
type Filters struct {
	ProjectID  *uuid.UUID
	AssignedTo *uuid.UUID
	Status     *enums.TaskStatus
	Priority   *enums.PriorityLevel
}

// List returns tasks newest first.
func (r *Repository) List(ctx context.Context, filters Filters) ([]models.Task, error) {
	qb := r.db.WithContext(ctx).Model(&models.Task{})
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.AssignedTo != nil {
		qb = qb.Where("assigned_to = ?", *filters.AssignedTo)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		qb = qb.Where("priority = ?", *filters.Priority)
	}
	var rows []models.Task
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// TransitionStatus flips the task status pinned to its current value.
// Completion stamps completed_at.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TaskStatus) (int64, error) {
	updates := map[string]any{"status": to}
	if to == enums.TaskStatusCompleted {
		updates["completed_at"] = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}
