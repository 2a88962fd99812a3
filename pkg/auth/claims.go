// Package auth verifies the access tokens issued by the identity service.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/pkg/enums"
)

var ErrInvalidClaims = errors.New("auth: invalid token claims")

type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.Role
	SellerID *uuid.UUID
	JTI      string
}

type AccessTokenClaims struct {
	UserID   uuid.UUID  `json:"user_id"`
	Role     enums.Role `json:"role"`
	SellerID *uuid.UUID `json:"seller_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims pass.
func (c AccessTokenClaims) Validate() error {
	return checkIdentity(c.UserID, c.Role, c.SellerID)
}

func checkIdentity(userID uuid.UUID, role enums.Role, sellerID *uuid.UUID) error {
	switch {
	case userID == uuid.Nil:
		return errors.Join(ErrInvalidClaims, errors.New("user_id is required"))
	case !role.IsValid():
		return errors.Join(ErrInvalidClaims, errors.New("unknown role "+string(role)))
	case role == enums.RoleSeller && (sellerID == nil || *sellerID == uuid.Nil):
		return errors.Join(ErrInvalidClaims, errors.New("seller tokens carry seller_id"))
	}
	return nil
}
