package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository wires project, membership, and milestone persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new project row.
func (r *Repository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// Update saves the project row.
func (r *Repository) Update(ctx context.Context, project *models.Project) (*models.Project, error) {
	if err := r.db.WithContext(ctx).Omit("Members").Save(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes a project by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Project{}).Error
}

// FindByID loads the project with members.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Members").First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Filters narrows project listings.
type Filters struct {
	Status   *enums.ProjectStatus
	ClientID *uuid.UUID
	MemberID *uuid.UUID
}

// List returns projects newest first.
func (r *Repository) List(ctx context.Context, filters Filters) ([]models.Project, error) {
	qb := r.db.WithContext(ctx).Model(&models.Project{})
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.ClientID != nil {
		qb = qb.Where("client_id = ?", *filters.ClientID)
	}
	if filters.MemberID != nil {
		qb = qb.Where("id IN (?)", r.db.Model(&models.ProjectMember{}).
			Select("project_id").Where("user_id = ?", *filters.MemberID))
	}
	var rows []models.Project
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// ListByStatuses returns projects in any of the given statuses, newest first.
func (r *Repository) ListByStatuses(ctx context.Context, statuses []enums.ProjectStatus) ([]models.Project, error) {
	var rows []models.Project
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// TransitionStatus flips the project status pinned to its current value.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.ProjectStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// AddMember assigns a profile to the project.
func (r *Repository) AddMember(ctx context.Context, member *models.ProjectMember) (*models.ProjectMember, error) {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember unassigns a profile from the project.
func (r *Repository) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{})
	return result.RowsAffected, result.Error
}

// IsMember reports whether the profile belongs to the project.
func (r *Repository) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// CreateMilestone inserts a dated checkpoint.
func (r *Repository) CreateMilestone(ctx context.Context, milestone *models.Milestone) (*models.Milestone, error) {
	if milestone.ID == uuid.Nil {
		milestone.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(milestone).Error; err != nil {
		return nil, err
	}
	return milestone, nil
}

// ListMilestones returns the project's checkpoints by target date.
func (r *Repository) ListMilestones(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	var rows []models.Milestone
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("target_date ASC").
		Find(&rows).Error
	return rows, err
}

// CompleteMilestone stamps completion exactly once.
func (r *Repository) CompleteMilestone(ctx context.Context, id uuid.UUID, completedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(map[string]any{"completed": true, "completed_at": completedAt})
	return result.RowsAffected, result.Error
}

// DeleteMilestone removes one checkpoint.
func (r *Repository) DeleteMilestone(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Milestone{}).Error
}
