package materials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
	"github.com/apexbuild/apexbuild-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the materials inventory ledger.
type Service interface {
	CreateMaterial(ctx context.Context, actorID uuid.UUID, input CreateMaterialInput) (*models.Material, error)
	UpdateMaterial(ctx context.Context, materialID uuid.UUID, input UpdateMaterialInput) (*models.Material, error)
	DeleteMaterial(ctx context.Context, materialID uuid.UUID) error
	GetMaterial(ctx context.Context, materialID uuid.UUID) (*models.Material, error)
	ListMaterials(ctx context.Context) ([]models.Material, error)
	LowStockMaterials(ctx context.Context) ([]models.Material, error)

	RecordTransaction(ctx context.Context, actorID uuid.UUID, input RecordTransactionInput) (*TransactionResult, error)
	RecordTransactionTx(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, input RecordTransactionInput) (*TransactionResult, error)
	ListTransactions(ctx context.Context, filters TransactionFilters, params pagination.Params) (*TransactionPage, error)

	CreateRequest(ctx context.Context, actorID uuid.UUID, input CreateRequestInput) (*models.MaterialRequest, error)
	ListRequests(ctx context.Context, filters RequestFilters) ([]models.MaterialRequest, error)
	DecideRequest(ctx context.Context, actorID, requestID uuid.UUID, decision enums.RequestDecision) (*models.MaterialRequest, error)
}

// CreateMaterialInput holds the validated payload to create a material.
type CreateMaterialInput struct {
	Name         string
	Description  *string
	Unit         string
	ReorderLevel int
}

// UpdateMaterialInput holds optional mutation values for a material.
// Quantity is absent on purpose; stock only moves through transactions.
type UpdateMaterialInput struct {
	Name         *string
	Description  *string
	Unit         *string
	ReorderLevel *int
}

// RecordTransactionInput describes one stock movement.
type RecordTransactionInput struct {
	MaterialID      uuid.UUID
	Type            enums.TransactionType
	Quantity        int
	UnitPrice       *decimal.Decimal
	VendorID        *uuid.UUID
	ProjectID       *uuid.UUID
	ReferenceNumber *string
	Notes           *string
}

// TransactionResult returns the appended ledger row together with the
// post-adjustment material state.
type TransactionResult struct {
	Transaction *models.MaterialTransaction
	Material    *models.Material
	LowStock    bool
}

// CreateRequestInput asks for stock on behalf of a project.
type CreateRequestInput struct {
	MaterialID uuid.UUID
	ProjectID  uuid.UUID
	Quantity   int
	Notes      *string
}

// Alerter receives low-stock notifications after ledger writes commit.
type Alerter interface {
	LowStock(ctx context.Context, material *models.Material)
}

type service struct {
	repo   *Repository
	tx     txRunner
	alerts Alerter
}

// NewService constructs a materials service instance. The alerter is optional.
func NewService(repo *Repository, tx txRunner, alerts Alerter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("materials repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, alerts: alerts}, nil
}

// CreateMaterial registers a new inventory item starting at zero stock.
func (s *service) CreateMaterial(ctx context.Context, actorID uuid.UUID, input CreateMaterialInput) (*models.Material, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material name is required")
	}
	if strings.TrimSpace(input.Unit) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material unit is required")
	}
	if input.ReorderLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder_level cannot be negative")
	}

	material := &models.Material{
		Name:         name,
		Description:  input.Description,
		Unit:         strings.TrimSpace(input.Unit),
		Quantity:     0,
		ReorderLevel: input.ReorderLevel,
	}
	created, err := s.repo.CreateMaterial(ctx, material)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_materials_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "material name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert material")
	}
	return created, nil
}

// UpdateMaterial mutates descriptive fields only.
func (s *service) UpdateMaterial(ctx context.Context, materialID uuid.UUID, input UpdateMaterialInput) (*models.Material, error) {
	material, err := s.loadMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "material name cannot be empty")
		}
		material.Name = name
	}
	if input.Description != nil {
		material.Description = input.Description
	}
	if input.Unit != nil {
		unit := strings.TrimSpace(*input.Unit)
		if unit == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "material unit cannot be empty")
		}
		material.Unit = unit
	}
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder_level cannot be negative")
		}
		material.ReorderLevel = *input.ReorderLevel
	}

	updated, err := s.repo.UpdateMaterial(ctx, material)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_materials_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "material name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update material")
	}
	return updated, nil
}

// DeleteMaterial removes the material. Ledger rows keep their history.
func (s *service) DeleteMaterial(ctx context.Context, materialID uuid.UUID) error {
	if _, err := s.loadMaterial(ctx, materialID); err != nil {
		return err
	}
	if err := s.repo.DeleteMaterial(ctx, materialID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete material")
	}
	return nil
}

// GetMaterial returns a single material.
func (s *service) GetMaterial(ctx context.Context, materialID uuid.UUID) (*models.Material, error) {
	return s.loadMaterial(ctx, materialID)
}

// ListMaterials returns the whole catalog.
func (s *service) ListMaterials(ctx context.Context) ([]models.Material, error) {
	rows, err := s.repo.ListMaterials(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list materials")
	}
	return rows, nil
}

// LowStockMaterials returns everything at or below its reorder level.
func (s *service) LowStockMaterials(ctx context.Context) ([]models.Material, error) {
	rows, err := s.repo.ListLowStockMaterials(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list low stock materials")
	}
	return rows, nil
}

// RecordTransaction atomically adjusts stock and appends the ledger row.
// Either both writes commit or neither does.
func (s *service) RecordTransaction(ctx context.Context, actorID uuid.UUID, input RecordTransactionInput) (*TransactionResult, error) {
	if err := validateTransactionInput(input); err != nil {
		return nil, err
	}

	var result *TransactionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		posted, err := s.post(ctx, tx, actorID, input)
		if err != nil {
			return err
		}
		result = posted
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.LowStock && s.alerts != nil {
		s.alerts.LowStock(ctx, result.Material)
	}
	return result, nil
}

// RecordTransactionTx posts a ledger entry inside the caller's open
// transaction, so the entry commits or rolls back with the caller's other
// writes. Low-stock alerting is skipped: nothing has committed yet.
func (s *service) RecordTransactionTx(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, input RecordTransactionInput) (*TransactionResult, error) {
	if err := validateTransactionInput(input); err != nil {
		return nil, err
	}
	return s.post(ctx, tx, actorID, input)
}

func validateTransactionInput(input RecordTransactionInput) error {
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit_price cannot be negative")
	}
	return nil
}

func (s *service) post(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, input RecordTransactionInput) (*TransactionResult, error) {
	txRepo := s.repo.WithTx(tx)
	delta := input.Type.Delta() * input.Quantity

	rows, err := txRepo.AdjustQuantity(ctx, input.MaterialID, delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust material quantity")
	}
	if rows == 0 {
		material, loadErr := txRepo.FindMaterialByID(ctx, input.MaterialID)
		if loadErr != nil {
			if db.IsNotFound(loadErr) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, loadErr, "db: load material")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("outflow of %d exceeds on-hand quantity %d", input.Quantity, material.Quantity)).
			WithDetails(map[string]any{
				"material_id": material.ID,
				"on_hand":     material.Quantity,
				"requested":   input.Quantity,
			})
	}

	txRow := &models.MaterialTransaction{
		MaterialID:      input.MaterialID,
		Type:            input.Type,
		Quantity:        input.Quantity,
		UnitPrice:       input.UnitPrice,
		VendorID:        input.VendorID,
		ProjectID:       input.ProjectID,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		CreatedBy:       actorID,
	}
	created, err := txRepo.CreateTransaction(ctx, txRow)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert material transaction")
	}

	material, err := txRepo.FindMaterialByID(ctx, input.MaterialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload material")
	}

	return &TransactionResult{
		Transaction: created,
		Material:    material,
		LowStock:    material.LowStock(),
	}, nil
}

// ListTransactions returns ledger history one cursor page at a time.
func (s *service) ListTransactions(ctx context.Context, filters TransactionFilters, params pagination.Params) (*TransactionPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.ListTransactions(ctx, filters, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list material transactions")
	}
	return page, nil
}

// CreateRequest files a pending request. It never touches stock.
func (s *service) CreateRequest(ctx context.Context, actorID uuid.UUID, input CreateRequestInput) (*models.MaterialRequest, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.loadMaterial(ctx, input.MaterialID); err != nil {
		return nil, err
	}

	request := &models.MaterialRequest{
		MaterialID:  input.MaterialID,
		ProjectID:   input.ProjectID,
		Quantity:    input.Quantity,
		Status:      enums.RequestStatusPending,
		Notes:       input.Notes,
		RequestedBy: actorID,
	}
	created, err := s.repo.CreateRequest(ctx, request)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert material request")
	}
	return created, nil
}

// ListRequests returns filtered requests.
func (s *service) ListRequests(ctx context.Context, filters RequestFilters) ([]models.MaterialRequest, error) {
	rows, err := s.repo.ListRequests(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list material requests")
	}
	return rows, nil
}

// DecideRequest approves or rejects a pending request exactly once.
// Approval stamps the decider but does not move inventory; issuing stock
// is a separate outflow transaction.
func (s *service) DecideRequest(ctx context.Context, actorID, requestID uuid.UUID, decision enums.RequestDecision) (*models.MaterialRequest, error) {
	if !decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid decision %q", decision))
	}

	rows, err := s.repo.DecideRequest(ctx, requestID, decision.Status(), actorID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decide material request")
	}
	if rows == 0 {
		request, loadErr := s.repo.FindRequestByID(ctx, requestID)
		if loadErr != nil {
			if db.IsNotFound(loadErr) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material request not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, loadErr, "db: load material request")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("request already %s", request.Status))
	}

	request, err := s.repo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload material request")
	}
	return request, nil
}

func (s *service) loadMaterial(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	material, err := s.repo.FindMaterialByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load material")
	}
	return material, nil
}
