package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	Role      enums.AppRole
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID     `json:"user_id"`
	ProfileID uuid.UUID     `json:"profile_id"`
	Role      enums.AppRole `json:"role"`
	jwt.RegisteredClaims
}
