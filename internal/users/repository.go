package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Repository persists login credentials and directory profiles.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB. It is
// commonly constructed per-transaction inside registration flows.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUserInput carries credential fields for a new account.
type CreateUserInput struct {
	Email        string
	PasswordHash string
}

// CreateUser inserts a credential row.
func (r *Repository) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: input.PasswordHash,
		IsActive:     true,
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByEmail loads a credential row by normalized email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByID loads a credential row.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetActive toggles whether the account can log in.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	return result.RowsAffected, result.Error
}

// UpdatePasswordHash replaces the stored credential.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

// CreateProfileInput carries directory fields for a new profile.
type CreateProfileInput struct {
	UserID   uuid.UUID
	FullName string
	Email    string
	Phone    *string
	Company  *string
	Role     enums.AppRole
}

// CreateProfile inserts a directory row.
func (r *Repository) CreateProfile(ctx context.Context, input CreateProfileInput) (*models.Profile, error) {
	profile := &models.Profile{
		ID:       uuid.New(),
		UserID:   input.UserID,
		FullName: input.FullName,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:    input.Phone,
		Company:  input.Company,
		Role:     input.Role,
	}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// FindProfileByID loads a directory row.
func (r *Repository) FindProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindProfileByUserID loads the directory row for a credential.
func (r *Repository) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies directory field changes.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// ProfileFilters narrows directory listings.
type ProfileFilters struct {
	Role *enums.AppRole
}

// ListProfiles returns directory rows by name.
func (r *Repository) ListProfiles(ctx context.Context, filters ProfileFilters) ([]models.Profile, error) {
	qb := r.db.WithContext(ctx).Model(&models.Profile{})
	if filters.Role != nil {
		qb = qb.Where("role = ?", *filters.Role)
	}
	var rows []models.Profile
	err := qb.Order("full_name ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}
