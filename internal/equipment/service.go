package equipment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes equipment pool and loan operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Equipment, error)
	Update(ctx context.Context, equipmentID uuid.UUID, input UpdateInput) (*models.Equipment, error)
	Delete(ctx context.Context, equipmentID uuid.UUID) error
	Get(ctx context.Context, equipmentID uuid.UUID) (*models.Equipment, error)
	List(ctx context.Context, filters Filters) ([]models.Equipment, error)

	Allocate(ctx context.Context, actorID uuid.UUID, input AllocateInput) (*models.EquipmentAllocation, error)
	Return(ctx context.Context, allocationID uuid.UUID) (*models.EquipmentAllocation, error)
	ListAllocations(ctx context.Context, filters AllocationFilters) ([]models.EquipmentAllocation, error)
}

// CreateInput registers a new asset pool. The full quantity starts
// available.
type CreateInput struct {
	Name        string
	Description *string
	Quantity    int
	Location    *string
}

// UpdateInput mutates descriptive fields and maintenance dates.
// Quantities move only through allocation and return.
type UpdateInput struct {
	Name            *string
	Description     *string
	Status          *enums.EquipmentStatus
	Location        *string
	LastMaintenance *time.Time
	NextMaintenance *time.Time
}

// AllocateInput loans units of a pool to a project.
type AllocateInput struct {
	EquipmentID uuid.UUID
	ProjectID   uuid.UUID
	Quantity    int
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs an equipment service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Create registers an asset pool.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Equipment, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "equipment name is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	item := &models.Equipment{
		Name:         name,
		Description:  input.Description,
		Quantity:     input.Quantity,
		AvailableQty: input.Quantity,
		Status:       enums.EquipmentStatusAvailable,
		Location:     input.Location,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert equipment")
	}
	return created, nil
}

// Update mutates descriptive fields.
func (s *service) Update(ctx context.Context, equipmentID uuid.UUID, input UpdateInput) (*models.Equipment, error) {
	if _, err := s.Get(ctx, equipmentID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "equipment name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *input.Status))
		}
		updates["status"] = *input.Status
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.LastMaintenance != nil {
		updates["last_maintenance"] = *input.LastMaintenance
	}
	if input.NextMaintenance != nil {
		updates["next_maintenance"] = *input.NextMaintenance
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, equipmentID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update equipment")
		}
	}
	return s.Get(ctx, equipmentID)
}

// Delete retires a pool. Pools with outstanding loans cannot go.
func (s *service) Delete(ctx context.Context, equipmentID uuid.UUID) error {
	open, err := s.repo.CountOpenAllocations(ctx, equipmentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count open allocations")
	}
	if open > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "equipment has outstanding allocations")
	}
	rows, err := s.repo.Delete(ctx, equipmentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete equipment")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
	}
	return nil
}

// Get returns one pool.
func (s *service) Get(ctx context.Context, equipmentID uuid.UUID) (*models.Equipment, error) {
	item, err := s.repo.FindByID(ctx, equipmentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load equipment")
	}
	return item, nil
}

// List returns filtered pools.
func (s *service) List(ctx context.Context, filters Filters) ([]models.Equipment, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list equipment")
	}
	return rows, nil
}

// Allocate atomically takes units from the pool and opens a loan. The
// guarded update keeps concurrent allocations from overdrawing the pool.
func (s *service) Allocate(ctx context.Context, actorID uuid.UUID, input AllocateInput) (*models.EquipmentAllocation, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation quantity must be positive")
	}
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project_id is required")
	}

	var result *models.EquipmentAllocation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.Reserve(ctx, input.EquipmentID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reserve equipment")
		}
		if rows == 0 {
			item, err := repo.FindByID(ctx, input.EquipmentID)
			if err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load equipment")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough equipment available").
				WithDetails(map[string]any{
					"equipment_id": input.EquipmentID,
					"available":    item.AvailableQty,
					"requested":    input.Quantity,
				})
		}

		result, err = repo.CreateAllocation(ctx, &models.EquipmentAllocation{
			EquipmentID: input.EquipmentID,
			ProjectID:   input.ProjectID,
			Quantity:    input.Quantity,
			AllocatedBy: actorID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert allocation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Return closes a loan and puts the units back in the pool. A loan can
// be returned once.
func (s *service) Return(ctx context.Context, allocationID uuid.UUID) (*models.EquipmentAllocation, error) {
	var result *models.EquipmentAllocation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		alloc, err := repo.FindAllocationByID(ctx, allocationID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load allocation")
		}

		rows, err := repo.CloseAllocation(ctx, allocationID, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: close allocation")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "allocation already returned")
		}

		rows, err = repo.Release(ctx, alloc.EquipmentID, alloc.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: release equipment")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "returning would exceed pool quantity")
		}

		result, err = repo.FindAllocationByID(ctx, allocationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload allocation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListAllocations returns filtered loans.
func (s *service) ListAllocations(ctx context.Context, filters AllocationFilters) ([]models.EquipmentAllocation, error) {
	rows, err := s.repo.ListAllocations(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list allocations")
	}
	return rows, nil
}
