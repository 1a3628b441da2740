package equipment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository persists equipment pools and their allocations.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new equipment row.
func (r *Repository) Create(ctx context.Context, item *models.Equipment) (*models.Equipment, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Update applies descriptive field changes. Quantities move only
// through Reserve and Release.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Equipment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes an equipment pool and reports whether a row matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Equipment{})
	return result.RowsAffected, result.Error
}

// FindByID loads one equipment pool.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Equipment, error) {
	var item models.Equipment
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Filters narrows equipment listings.
type Filters struct {
	Status *enums.EquipmentStatus
}

// List returns equipment pools by name.
func (r *Repository) List(ctx context.Context, filters Filters) ([]models.Equipment, error) {
	qb := r.db.WithContext(ctx).Model(&models.Equipment{})
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	var rows []models.Equipment
	err := qb.Order("name ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// Reserve atomically takes qty units from the pool; the guard keeps
// available_qty from going negative. Returns rows affected.
func (r *Repository) Reserve(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Equipment{}).
		Where("id = ? AND available_qty >= ?", id, qty).
		Update("available_qty", gorm.Expr("available_qty - ?", qty))
	return result.RowsAffected, result.Error
}

// Release returns qty units to the pool capped at the total quantity.
func (r *Repository) Release(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Equipment{}).
		Where("id = ? AND available_qty + ? <= quantity", id, qty).
		Update("available_qty", gorm.Expr("available_qty + ?", qty))
	return result.RowsAffected, result.Error
}

// CreateAllocation inserts a loan row.
func (r *Repository) CreateAllocation(ctx context.Context, alloc *models.EquipmentAllocation) (*models.EquipmentAllocation, error) {
	if alloc.ID == uuid.Nil {
		alloc.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(alloc).Error; err != nil {
		return nil, err
	}
	return alloc, nil
}

// FindAllocationByID loads one loan.
func (r *Repository) FindAllocationByID(ctx context.Context, id uuid.UUID) (*models.EquipmentAllocation, error) {
	var alloc models.EquipmentAllocation
	if err := r.db.WithContext(ctx).First(&alloc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &alloc, nil
}

// CloseAllocation stamps the return time on an open loan.
func (r *Repository) CloseAllocation(ctx context.Context, id uuid.UUID, returnedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EquipmentAllocation{}).
		Where("id = ? AND returned_at IS NULL", id).
		Update("returned_at", returnedAt)
	return result.RowsAffected, result.Error
}

// AllocationFilters narrows loan listings.
type AllocationFilters struct {
	EquipmentID *uuid.UUID
	ProjectID   *uuid.UUID
	OpenOnly    bool
}

// ListAllocations returns loans newest first.
func (r *Repository) ListAllocations(ctx context.Context, filters AllocationFilters) ([]models.EquipmentAllocation, error) {
	qb := r.db.WithContext(ctx).Model(&models.EquipmentAllocation{})
	if filters.EquipmentID != nil {
		qb = qb.Where("equipment_id = ?", *filters.EquipmentID)
	}
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.OpenOnly {
		qb = qb.Where("returned_at IS NULL")
	}
	var rows []models.EquipmentAllocation
	err := qb.Order("allocated_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// CountOpenAllocations reports outstanding loans for a pool.
func (r *Repository) CountOpenAllocations(ctx context.Context, equipmentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EquipmentAllocation{}).
		Where("equipment_id = ? AND returned_at IS NULL", equipmentID).
		Count(&count).Error
	return count, err
}
