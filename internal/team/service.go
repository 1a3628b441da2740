package team

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/internal/users"
	"github.com/apexbuild/apexbuild-backend/pkg/config"
	"github.com/apexbuild/apexbuild-backend/pkg/db"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
	"github.com/apexbuild/apexbuild-backend/pkg/security"
)

const invitePasswordLength = 16

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes staff directory administration.
type Service interface {
	Invite(ctx context.Context, input InviteInput) (*InviteResult, error)
	UpdateRole(ctx context.Context, profileID uuid.UUID, role enums.AppRole) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profileID uuid.UUID, input ProfileUpdateInput) (*models.Profile, error)
	SetActive(ctx context.Context, profileID uuid.UUID, active bool) error
	Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)
	List(ctx context.Context, filters users.ProfileFilters) ([]models.Profile, error)
}

// InviteInput provisions a staff account.
type InviteInput struct {
	FullName string
	Email    string
	Phone    *string
	Company  *string
	Role     enums.AppRole
}

// InviteResult returns the new profile and its one-time password. The
// password is shown once and never stored in the clear.
type InviteResult struct {
	Profile      users.ProfileView `json:"profile"`
	TempPassword string            `json:"temp_password"`
}

// ProfileUpdateInput mutates directory fields.
type ProfileUpdateInput struct {
	FullName  *string
	Phone     *string
	Company   *string
	AvatarURL *string
}

type service struct {
	repo        *users.Repository
	tx          txRunner
	passwordCfg config.PasswordConfig
}

// NewService constructs a team service instance.
func NewService(repo *users.Repository, tx txRunner, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, passwordCfg: passwordCfg}, nil
}

// Invite provisions a staff account with a generated one-time password.
func (s *service) Invite(ctx context.Context, input InviteInput) (*InviteResult, error) {
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}

	tempPassword, err := security.GenerateInvitePassword(invitePasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invite password")
	}
	passwordHash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var profile *models.Profile
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)

		if _, err := repo.FindUserByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check email")
		}

		user, err := repo.CreateUser(ctx, users.CreateUserInput{
			Email:        email,
			PasswordHash: passwordHash,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
		}

		profile, err = repo.CreateProfile(ctx, users.CreateProfileInput{
			UserID:   user.ID,
			FullName: fullName,
			Email:    email,
			Phone:    input.Phone,
			Company:  input.Company,
			Role:     input.Role,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &InviteResult{
		Profile:      users.FromModel(profile),
		TempPassword: tempPassword,
	}, nil
}

// UpdateRole changes a member's role.
func (s *service) UpdateRole(ctx context.Context, profileID uuid.UUID, role enums.AppRole) (*models.Profile, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	rows, err := s.repo.UpdateProfile(ctx, profileID, map[string]any{"role": role})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update role")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return s.Get(ctx, profileID)
}

// UpdateProfile mutates directory fields.
func (s *service) UpdateProfile(ctx context.Context, profileID uuid.UUID, input ProfileUpdateInput) (*models.Profile, error) {
	updates := map[string]any{}
	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if fullName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name cannot be empty")
		}
		updates["full_name"] = fullName
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Company != nil {
		updates["company"] = *input.Company
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = *input.AvatarURL
	}
	if len(updates) == 0 {
		return s.Get(ctx, profileID)
	}

	rows, err := s.repo.UpdateProfile(ctx, profileID, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update profile")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return s.Get(ctx, profileID)
}

// SetActive enables or disables the member's login.
func (s *service) SetActive(ctx context.Context, profileID uuid.UUID, active bool) error {
	profile, err := s.Get(ctx, profileID)
	if err != nil {
		return err
	}
	rows, err := s.repo.SetActive(ctx, profile.UserID, active)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: toggle account")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return nil
}

// Get returns one directory record.
func (s *service) Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.FindProfileByID(ctx, profileID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load profile")
	}
	return profile, nil
}

// List returns filtered directory records.
func (s *service) List(ctx context.Context, filters users.ProfileFilters) ([]models.Profile, error) {
	rows, err := s.repo.ListProfiles(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list profiles")
	}
	return rows, nil
}
