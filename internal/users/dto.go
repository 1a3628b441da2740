package users

import (
	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// ProfileView is the directory shape returned to clients.
type ProfileView struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	FullName  string        `json:"full_name"`
	Email     string        `json:"email"`
	Phone     *string       `json:"phone,omitempty"`
	Company   *string       `json:"company,omitempty"`
	AvatarURL *string       `json:"avatar_url,omitempty"`
	Role      enums.AppRole `json:"role"`
}

// FromModel converts a stored profile into its client view.
func FromModel(profile *models.Profile) ProfileView {
	if profile == nil {
		return ProfileView{}
	}
	return ProfileView{
		ID:        profile.ID,
		UserID:    profile.UserID,
		FullName:  profile.FullName,
		Email:     profile.Email,
		Phone:     profile.Phone,
		Company:   profile.Company,
		AvatarURL: profile.AvatarURL,
		Role:      profile.Role,
	}
}
