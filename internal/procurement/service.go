package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/internal/materials"
	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockLedger posts inflows when a delivery is received. The tx-scoped
// variant keeps the postings in the receiver's transaction.
type stockLedger interface {
	RecordTransactionTx(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, input materials.RecordTransactionInput) (*materials.TransactionResult, error)
}

// Service exposes vendor and purchase order operations.
type Service interface {
	CreateVendor(ctx context.Context, input VendorInput) (*models.Vendor, error)
	UpdateVendor(ctx context.Context, vendorID uuid.UUID, input VendorInput) (*models.Vendor, error)
	DeleteVendor(ctx context.Context, vendorID uuid.UUID) error
	GetVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	ListVendors(ctx context.Context) ([]models.Vendor, error)

	SetPrice(ctx context.Context, input SetPriceInput) (*models.MaterialPrice, error)
	ListVendorPrices(ctx context.Context, vendorID uuid.UUID) ([]models.MaterialPrice, error)
	CompareMaterialPrices(ctx context.Context, materialID uuid.UUID) ([]models.MaterialPrice, error)

	CreatePurchaseOrder(ctx context.Context, actorID uuid.UUID, input CreatePurchaseOrderInput) (*models.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, filters PurchaseOrderFilters) ([]models.PurchaseOrder, error)
	UpdatePurchaseOrderStatus(ctx context.Context, id uuid.UUID, next enums.PurchaseOrderStatus) (*models.PurchaseOrder, error)
	ReceiveDelivery(ctx context.Context, actorID, id uuid.UUID) (*models.PurchaseOrder, error)
}

// VendorInput holds the validated vendor payload.
type VendorInput struct {
	Name          string
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *string
}

// SetPriceInput quotes a vendor price for one material.
type SetPriceInput struct {
	VendorID   uuid.UUID
	MaterialID uuid.UUID
	Price      decimal.Decimal
	Unit       string
}

// CreatePurchaseOrderInput holds the order header and line items.
type CreatePurchaseOrderInput struct {
	VendorID         uuid.UUID
	ProjectID        *uuid.UUID
	OrderDate        time.Time
	ExpectedDelivery *time.Time
	Notes            *string
	DocumentURL      *string
	Items            []PurchaseOrderItemInput
}

// PurchaseOrderItemInput is one requested material line.
type PurchaseOrderItemInput struct {
	MaterialID uuid.UUID
	Quantity   int
	UnitPrice  decimal.Decimal
}

type service struct {
	repo   *Repository
	tx     txRunner
	ledger stockLedger
}

// NewService constructs a procurement service instance.
func NewService(repo *Repository, tx txRunner, ledger stockLedger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("procurement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger}, nil
}

// CreateVendor registers a supplier.
func (s *service) CreateVendor(ctx context.Context, input VendorInput) (*models.Vendor, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required")
	}
	vendor := &models.Vendor{
		Name:          name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Address:       input.Address,
	}
	created, err := s.repo.CreateVendor(ctx, vendor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert vendor")
	}
	return created, nil
}

// UpdateVendor overwrites the vendor's contact details.
func (s *service) UpdateVendor(ctx context.Context, vendorID uuid.UUID, input VendorInput) (*models.Vendor, error) {
	vendor, err := s.loadVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required")
	}
	vendor.Name = name
	vendor.ContactPerson = input.ContactPerson
	vendor.Email = input.Email
	vendor.Phone = input.Phone
	vendor.Address = input.Address

	updated, err := s.repo.UpdateVendor(ctx, vendor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update vendor")
	}
	return updated, nil
}

// DeleteVendor removes the supplier.
func (s *service) DeleteVendor(ctx context.Context, vendorID uuid.UUID) error {
	if _, err := s.loadVendor(ctx, vendorID); err != nil {
		return err
	}
	if err := s.repo.DeleteVendor(ctx, vendorID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete vendor")
	}
	return nil
}

// GetVendor returns one supplier.
func (s *service) GetVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	return s.loadVendor(ctx, vendorID)
}

// ListVendors returns all suppliers.
func (s *service) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	rows, err := s.repo.ListVendors(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list vendors")
	}
	return rows, nil
}

// SetPrice upserts the vendor's quote for a material.
func (s *service) SetPrice(ctx context.Context, input SetPriceInput) (*models.MaterialPrice, error) {
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if strings.TrimSpace(input.Unit) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	}
	if _, err := s.loadVendor(ctx, input.VendorID); err != nil {
		return nil, err
	}

	price := &models.MaterialPrice{
		VendorID:    input.VendorID,
		MaterialID:  input.MaterialID,
		Price:       input.Price,
		Unit:        strings.TrimSpace(input.Unit),
		LastUpdated: time.Now().UTC(),
	}
	saved, err := s.repo.UpsertPrice(ctx, price)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert material price")
	}
	return saved, nil
}

// ListVendorPrices returns one vendor's quote sheet.
func (s *service) ListVendorPrices(ctx context.Context, vendorID uuid.UUID) ([]models.MaterialPrice, error) {
	rows, err := s.repo.ListPricesByVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list vendor prices")
	}
	return rows, nil
}

// CompareMaterialPrices returns all quotes for a material, cheapest first.
func (s *service) CompareMaterialPrices(ctx context.Context, materialID uuid.UUID) ([]models.MaterialPrice, error) {
	rows, err := s.repo.ListPricesByMaterial(ctx, materialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: compare material prices")
	}
	return rows, nil
}

// CreatePurchaseOrder opens a draft order. Line totals and the order total
// are derived here; client-supplied totals are ignored.
func (s *service) CreatePurchaseOrder(ctx context.Context, actorID uuid.UUID, input CreatePurchaseOrderInput) (*models.PurchaseOrder, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order needs at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item unit_price cannot be negative")
		}
	}
	if _, err := s.loadVendor(ctx, input.VendorID); err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	total := decimal.Zero
	items := make([]models.PurchaseOrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)
		items = append(items, models.PurchaseOrderItem{
			MaterialID: item.MaterialID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: lineTotal,
		})
	}

	// Two concurrent creates can derive the same number; the unique index
	// rejects the loser, which retries with the next candidate.
	var created *models.PurchaseOrder
	var err error
	for attempt := 0; attempt < numberingAttempts; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)

			poNumber, err := nextPONumber(ctx, txRepo, orderDate, attempt)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: next po number")
			}

			po := &models.PurchaseOrder{
				PONumber:         poNumber,
				VendorID:         input.VendorID,
				ProjectID:        input.ProjectID,
				Status:           enums.PurchaseOrderStatusDraft,
				OrderDate:        orderDate,
				ExpectedDelivery: input.ExpectedDelivery,
				TotalAmount:      total,
				Notes:            input.Notes,
				DocumentURL:      input.DocumentURL,
				Items:            items,
				CreatedBy:        actorID,
			}
			created, err = txRepo.CreatePurchaseOrder(ctx, po)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert purchase order")
			}
			return nil
		})
		if err == nil {
			return created, nil
		}
		if !db.IsUniqueViolation(err, "idx_purchase_orders_po_number") {
			return nil, err
		}
	}
	return nil, err
}

// GetPurchaseOrder returns one order with its items.
func (s *service) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	po, err := s.repo.FindPurchaseOrderByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load purchase order")
	}
	return po, nil
}

// ListPurchaseOrders returns filtered orders.
func (s *service) ListPurchaseOrders(ctx context.Context, filters PurchaseOrderFilters) ([]models.PurchaseOrder, error) {
	rows, err := s.repo.ListPurchaseOrders(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list purchase orders")
	}
	return rows, nil
}

// UpdatePurchaseOrderStatus moves the order along draft -> ordered -> delivered,
// or cancels it before delivery. Receiving stock goes through ReceiveDelivery.
func (s *service) UpdatePurchaseOrderStatus(ctx context.Context, id uuid.UUID, next enums.PurchaseOrderStatus) (*models.PurchaseOrder, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", next))
	}
	if next == enums.PurchaseOrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deliveries are received, not set directly")
	}

	po, err := s.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !po.Status.CanTransition(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move purchase order from %s to %s", po.Status, next))
	}

	rows, err := s.repo.TransitionStatus(ctx, id, po.Status, next, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transition purchase order")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "purchase order changed concurrently")
	}
	return s.GetPurchaseOrder(ctx, id)
}

// ReceiveDelivery marks an ordered PO delivered and posts one inflow per
// line item. The status flip and every posting run in one DB transaction:
// a failed posting rolls the whole receipt back. The flip is conditional,
// so a PO is received at most once even under concurrent calls.
func (s *service) ReceiveDelivery(ctx context.Context, actorID, id uuid.UUID) (*models.PurchaseOrder, error) {
	po, err := s.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !po.Status.CanTransition(enums.PurchaseOrderStatusDelivered) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot receive purchase order in status %s", po.Status))
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).TransitionStatus(ctx, id, po.Status, enums.PurchaseOrderStatusDelivered,
			map[string]any{"actual_delivery": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: receive purchase order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase order already received")
		}

		for _, item := range po.Items {
			unitPrice := item.UnitPrice
			ref := po.PONumber
			if _, err := s.ledger.RecordTransactionTx(ctx, tx, actorID, materials.RecordTransactionInput{
				MaterialID:      item.MaterialID,
				Type:            enums.TransactionTypeInflow,
				Quantity:        item.Quantity,
				UnitPrice:       &unitPrice,
				VendorID:        &po.VendorID,
				ProjectID:       po.ProjectID,
				ReferenceNumber: &ref,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetPurchaseOrder(ctx, id)
}

func (s *service) loadVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.FindVendorByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load vendor")
	}
	return vendor, nil
}

// numberingAttempts bounds the retries when a derived PO number loses a
// race against a concurrent insert.
const numberingAttempts = 3

// nextPONumber derives the candidate number from the year's order count.
// The attempt offset skips past numbers already taken by rows the count
// does not explain, such as a racing insert in the same year.
func nextPONumber(ctx context.Context, repo *Repository, orderDate time.Time, attempt int) (string, error) {
	count, err := repo.CountPurchaseOrdersInYear(ctx, orderDate.Year())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%d-%04d", orderDate.Year(), count+1+int64(attempt)), nil
}
