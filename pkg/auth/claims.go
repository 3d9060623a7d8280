package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     enums.ActorRole
}

// AccessTokenClaims represents the typed JWT issued to clients. TenantID is
// absent for super admins, who select a tenant per request instead.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	TenantID *uuid.UUID      `json:"tenant_id,omitempty"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
