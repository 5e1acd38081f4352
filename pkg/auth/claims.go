package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

// AccessTokenPayload captures the member identity carried in an access token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.MemberRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT minted by the membership service.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Email  string           `json:"email"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
