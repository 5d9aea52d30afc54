package auth

import "errors"

var (
	ErrNotAuthenticated      = errors.New("Not authenticated")
	ErrCredentialsRequired   = errors.New("Username and password are required")
	ErrInvalidToken          = errors.New("Invalid or expired token")
	ErrTokenRevoked          = errors.New("Token has been revoked")
	ErrMissingSecret         = errors.New("JWT secret is not configured")
	ErrRevocationUnavailable = errors.New("Token revocation is not configured")
	ErrLogoutRequiresBearer  = errors.New("Only bearer tokens can be logged out")
)
