package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Profile is the staff directory record; its ID is the actor reference
// stamped onto every domain write (created_by, requested_by, approved_by).
type Profile struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID     `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	FullName  string        `gorm:"column:full_name;not null"`
	Email     string        `gorm:"column:email;not null"`
	Phone     *string       `gorm:"column:phone"`
	Company   *string       `gorm:"column:company"`
	AvatarURL *string       `gorm:"column:avatar_url"`
	Role      enums.AppRole `gorm:"column:role;type:app_role;not null;default:'client'"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
