package materials

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	"github.com/apexbuild/apexbuild-backend/pkg/pagination"
)

// Repository wires together material, transaction, and request persistence.
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

// CreateMaterial inserts a new material row.
func (r *Repository) CreateMaterial(ctx context.Context, material *models.Material) (*models.Material, error) {
	if material.ID == uuid.Nil {
		material.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(material).Error; err != nil {
		return nil, err
	}
	return material, nil
}

// UpdateMaterial updates descriptive fields only. Quantity never moves here.
func (r *Repository) UpdateMaterial(ctx context.Context, material *models.Material) (*models.Material, error) {
	err := r.db.WithContext(ctx).
		Model(&models.Material{}).
		Where("id = ?", material.ID).
		Updates(map[string]any{
			"name":          material.Name,
			"description":   material.Description,
			"unit":          material.Unit,
			"reorder_level": material.ReorderLevel,
		}).Error
	if err != nil {
		return nil, err
	}
	return r.FindMaterialByID(ctx, material.ID)
}

// DeleteMaterial removes a material by ID.
func (r *Repository) DeleteMaterial(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Material{}).Error
}

// FindMaterialByID loads a single material.
func (r *Repository) FindMaterialByID(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	var material models.Material
	if err := r.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

// ListMaterials returns all materials ordered by name.
func (r *Repository) ListMaterials(ctx context.Context) ([]models.Material, error) {
	var rows []models.Material
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// ListLowStockMaterials returns materials at or below their reorder level.
func (r *Repository) ListLowStockMaterials(ctx context.Context) ([]models.Material, error) {
	var rows []models.Material
	err := r.db.WithContext(ctx).
		Where("quantity <= reorder_level").
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// AdjustQuantity applies a signed delta to the material's on-hand quantity.
// The WHERE clause refuses any update that would drive quantity negative;
// callers must check the returned row count and disambiguate.
func (r *Repository) AdjustQuantity(ctx context.Context, materialID uuid.UUID, delta int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Material{}).
		Where("id = ? AND quantity + ? >= 0", materialID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	return result.RowsAffected, result.Error
}

// CreateTransaction appends one immutable ledger row.
func (r *Repository) CreateTransaction(ctx context.Context, txRow *models.MaterialTransaction) (*models.MaterialTransaction, error) {
	if txRow.ID == uuid.Nil {
		txRow.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(txRow).Error; err != nil {
		return nil, err
	}
	return txRow, nil
}

// TransactionFilters narrows ledger listings.
type TransactionFilters struct {
	MaterialID *uuid.UUID
	ProjectID  *uuid.UUID
	Type       *enums.TransactionType
}

// TransactionPage is one ledger page plus the cursor for the page after it.
type TransactionPage struct {
	Transactions []models.MaterialTransaction `json:"transactions"`
	NextCursor   *string                      `json:"next_cursor,omitempty"`
}

// ListTransactions returns ledger rows newest first, keyed on (created_at, id).
func (r *Repository) ListTransactions(ctx context.Context, filters TransactionFilters, limit int, cursor *pagination.Cursor) (*TransactionPage, error) {
	qb := r.db.WithContext(ctx).Model(&models.MaterialTransaction{})
	if filters.MaterialID != nil {
		qb = qb.Where("material_id = ?", *filters.MaterialID)
	}
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Type != nil {
		qb = qb.Where("transaction_type = ?", *filters.Type)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	limit = pagination.NormalizeLimit(limit)
	var rows []models.MaterialTransaction
	err := qb.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{Transactions: rows}
	if len(rows) > limit {
		page.Transactions = rows[:limit]
		last := page.Transactions[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	return page, nil
}

// CreateRequest inserts a pending material request.
func (r *Repository) CreateRequest(ctx context.Context, request *models.MaterialRequest) (*models.MaterialRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// FindRequestByID loads a single material request.
func (r *Repository) FindRequestByID(ctx context.Context, id uuid.UUID) (*models.MaterialRequest, error) {
	var request models.MaterialRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// RequestFilters narrows request listings.
type RequestFilters struct {
	MaterialID *uuid.UUID
	ProjectID  *uuid.UUID
	Status     *enums.RequestStatus
}

// ListRequests returns material requests newest first.
func (r *Repository) ListRequests(ctx context.Context, filters RequestFilters) ([]models.MaterialRequest, error) {
	qb := r.db.WithContext(ctx).Model(&models.MaterialRequest{})
	if filters.MaterialID != nil {
		qb = qb.Where("material_id = ?", *filters.MaterialID)
	}
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	var rows []models.MaterialRequest
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// DecideRequest flips a pending request to its terminal status. The WHERE
// clause only matches pending rows, so a second decision affects zero rows.
func (r *Repository) DecideRequest(ctx context.Context, id uuid.UUID, status enums.RequestStatus, decidedBy uuid.UUID, decidedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MaterialRequest{}).
		Where("id = ? AND status = ?", id, enums.RequestStatusPending).
		Updates(map[string]any{
			"status":      status,
			"approved_by": decidedBy,
			"approved_at": decidedAt,
		})
	return result.RowsAffected, result.Error
}
