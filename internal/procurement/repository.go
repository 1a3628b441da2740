package procurement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository wires vendor, pricing, and purchase order persistence.
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

// CreateVendor inserts a new vendor row.
func (r *Repository) CreateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	if vendor.ID == uuid.Nil {
		vendor.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

// UpdateVendor saves the vendor row.
func (r *Repository) UpdateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	if err := r.db.WithContext(ctx).Save(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

// DeleteVendor removes a vendor by ID.
func (r *Repository) DeleteVendor(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vendor{}).Error
}

// FindVendorByID loads a single vendor.
func (r *Repository) FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// ListVendors returns all vendors ordered by name.
func (r *Repository) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var rows []models.Vendor
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// UpsertPrice writes the vendor's quote for a material, last writer wins.
func (r *Repository) UpsertPrice(ctx context.Context, price *models.MaterialPrice) (*models.MaterialPrice, error) {
	if price.ID == uuid.Nil {
		price.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "material_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "unit", "last_updated"}),
		}).
		Create(price).Error
	if err != nil {
		return nil, err
	}

	var saved models.MaterialPrice
	if err := r.db.WithContext(ctx).
		First(&saved, "vendor_id = ? AND material_id = ?", price.VendorID, price.MaterialID).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListPricesByVendor returns a vendor's quote sheet.
func (r *Repository) ListPricesByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.MaterialPrice, error) {
	var rows []models.MaterialPrice
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("last_updated DESC").
		Find(&rows).Error
	return rows, err
}

// ListPricesByMaterial returns all vendor quotes for one material, cheapest first.
func (r *Repository) ListPricesByMaterial(ctx context.Context, materialID uuid.UUID) ([]models.MaterialPrice, error) {
	var rows []models.MaterialPrice
	err := r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("price ASC").
		Find(&rows).Error
	return rows, err
}

// DeletePrice removes one quote row.
func (r *Repository) DeletePrice(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MaterialPrice{}).Error
}

// CreatePurchaseOrder inserts the order header and its items.
func (r *Repository) CreatePurchaseOrder(ctx context.Context, po *models.PurchaseOrder) (*models.PurchaseOrder, error) {
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	for i := range po.Items {
		if po.Items[i].ID == uuid.Nil {
			po.Items[i].ID = uuid.New()
		}
		po.Items[i].PurchaseOrderID = po.ID
	}
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return nil, err
	}
	return po, nil
}

// FindPurchaseOrderByID loads the order with its items.
func (r *Repository) FindPurchaseOrderByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	if err := r.db.WithContext(ctx).Preload("Items").First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// PurchaseOrderFilters narrows order listings.
type PurchaseOrderFilters struct {
	VendorID  *uuid.UUID
	ProjectID *uuid.UUID
	Status    *enums.PurchaseOrderStatus
}

// ListPurchaseOrders returns orders newest first with items preloaded.
func (r *Repository) ListPurchaseOrders(ctx context.Context, filters PurchaseOrderFilters) ([]models.PurchaseOrder, error) {
	qb := r.db.WithContext(ctx).Preload("Items")
	if filters.VendorID != nil {
		qb = qb.Where("vendor_id = ?", *filters.VendorID)
	}
	if filters.ProjectID != nil {
		qb = qb.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	var rows []models.PurchaseOrder
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// TransitionStatus moves the order between statuses. The WHERE clause pins
// the expected current status so stale writers affect zero rows.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PurchaseOrderStatus, extra map[string]any) (int64, error) {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// CountPurchaseOrdersInYear supports sequential PO numbering.
func (r *Repository) CountPurchaseOrdersInYear(ctx context.Context, year int) (int64, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}
