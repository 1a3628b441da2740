package projects

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

// Service exposes project planning operations.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*models.Project, error)
	Update(ctx context.Context, projectID uuid.UUID, input UpdateInput) (*models.Project, error)
	Delete(ctx context.Context, projectID uuid.UUID) error
	Get(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	List(ctx context.Context, filters Filters) ([]models.Project, error)
	UpdateStatus(ctx context.Context, projectID uuid.UUID, next enums.ProjectStatus) (*models.Project, error)

	AddMember(ctx context.Context, projectID, userID uuid.UUID, role enums.AppRole) (*models.ProjectMember, error)
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error
	IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)

	Showcase(ctx context.Context) ([]ShowcaseEntry, error)

	CreateMilestone(ctx context.Context, input MilestoneInput) (*models.Milestone, error)
	ListMilestones(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error)
	CompleteMilestone(ctx context.Context, milestoneID uuid.UUID) error
	DeleteMilestone(ctx context.Context, milestoneID uuid.UUID) error
}

// CreateInput holds the validated payload to open a project.
type CreateInput struct {
	Name        string
	Description *string
	Location    *string
	Budget      *decimal.Decimal
	ClientID    *uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateInput holds optional mutation values. Status moves through
// UpdateStatus only.
type UpdateInput struct {
	Name        *string
	Description *string
	Location    *string
	Budget      *decimal.Decimal
	ClientID    *uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
}

// ShowcaseEntry is the public marketing view of a project. Budgets,
// clients, and member rosters never leave the dashboard.
type ShowcaseEntry struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
	Location    *string             `json:"location,omitempty"`
	Status      enums.ProjectStatus `json:"status"`
	StartDate   *time.Time          `json:"start_date,omitempty"`
	EndDate     *time.Time          `json:"end_date,omitempty"`
}

// MilestoneInput adds a dated checkpoint to a project.
type MilestoneInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description *string
	TargetDate  time.Time
}

type service struct {
	repo *Repository
}

// NewService constructs a projects service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("projects repository required")
	}
	return &service{repo: repo}, nil
}

// Create opens a new project in planning.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name is required")
	}
	if input.Budget != nil && input.Budget.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget cannot be negative")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date cannot precede start_date")
	}

	project := &models.Project{
		Name:        name,
		Description: input.Description,
		Location:    input.Location,
		Status:      enums.ProjectStatusPlanning,
		Budget:      input.Budget,
		ClientID:    input.ClientID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedBy:   actorID,
	}
	created, err := s.repo.Create(ctx, project)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert project")
	}
	return created, nil
}

// Update mutates descriptive fields.
func (s *service) Update(ctx context.Context, projectID uuid.UUID, input UpdateInput) (*models.Project, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name cannot be empty")
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = input.Description
	}
	if input.Location != nil {
		project.Location = input.Location
	}
	if input.Budget != nil {
		if input.Budget.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget cannot be negative")
		}
		project.Budget = input.Budget
	}
	if input.ClientID != nil {
		project.ClientID = input.ClientID
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date cannot precede start_date")
	}

	updated, err := s.repo.Update(ctx, project)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update project")
	}
	return updated, nil
}

// Delete removes the project and its dependents.
func (s *service) Delete(ctx context.Context, projectID uuid.UUID) error {
	if _, err := s.Get(ctx, projectID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, projectID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete project")
	}
	return nil
}

// Get returns one project with members.
func (s *service) Get(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load project")
	}
	return project, nil
}

// List returns filtered projects.
func (s *service) List(ctx context.Context, filters Filters) ([]models.Project, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list projects")
	}
	return rows, nil
}

// Showcase lists active and delivered work for the public site.
func (s *service) Showcase(ctx context.Context) ([]ShowcaseEntry, error) {
	rows, err := s.repo.ListByStatuses(ctx, []enums.ProjectStatus{
		enums.ProjectStatusInProgress,
		enums.ProjectStatusCompleted,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list showcase projects")
	}
	entries := make([]ShowcaseEntry, 0, len(rows))
	for i := range rows {
		p := &rows[i]
		entries = append(entries, ShowcaseEntry{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Location:    p.Location,
			Status:      p.Status,
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
		})
	}
	return entries, nil
}

// UpdateStatus moves the project along its lifecycle.
func (s *service) UpdateStatus(ctx context.Context, projectID uuid.UUID, next enums.ProjectStatus) (*models.Project, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", next))
	}
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.Status.CanTransition(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move project from %s to %s", project.Status, next))
	}

	rows, err := s.repo.TransitionStatus(ctx, projectID, project.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transition project")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project changed concurrently")
	}
	return s.Get(ctx, projectID)
}

// AddMember assigns a profile once per project.
func (s *service) AddMember(ctx context.Context, projectID, userID uuid.UUID, role enums.AppRole) (*models.ProjectMember, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}

	member, err := s.repo.AddMember(ctx, &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_project_members_project_user") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "profile already assigned to project")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert project member")
	}
	return member, nil
}

// RemoveMember unassigns the profile.
func (s *service) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	rows, err := s.repo.RemoveMember(ctx, projectID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove project member")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "project member not found")
	}
	return nil
}

// IsMember reports project membership.
func (s *service) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	ok, err := s.repo.IsMember(ctx, projectID, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check project membership")
	}
	return ok, nil
}

// CreateMilestone adds a checkpoint.
func (s *service) CreateMilestone(ctx context.Context, input MilestoneInput) (*models.Milestone, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone title is required")
	}
	if input.TargetDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target_date is required")
	}
	if _, err := s.Get(ctx, input.ProjectID); err != nil {
		return nil, err
	}

	milestone, err := s.repo.CreateMilestone(ctx, &models.Milestone{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: input.Description,
		TargetDate:  input.TargetDate,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert milestone")
	}
	return milestone, nil
}

// ListMilestones returns the project's checkpoints.
func (s *service) ListMilestones(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	rows, err := s.repo.ListMilestones(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list milestones")
	}
	return rows, nil
}

// CompleteMilestone stamps completion; repeat calls are state conflicts.
func (s *service) CompleteMilestone(ctx context.Context, milestoneID uuid.UUID) error {
	rows, err := s.repo.CompleteMilestone(ctx, milestoneID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: complete milestone")
	}
	if rows == 0 {
		var milestone models.Milestone
		if err := s.repo.db.WithContext(ctx).First(&milestone, "id = ?", milestoneID).Error; err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "milestone not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load milestone")
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "milestone already completed")
	}
	return nil
}

// DeleteMilestone removes one checkpoint.
func (s *service) DeleteMilestone(ctx context.Context, milestoneID uuid.UUID) error {
	if err := s.repo.DeleteMilestone(ctx, milestoneID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete milestone")
	}
	return nil
}
