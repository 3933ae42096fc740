package apperrors

import (
	"errors"
)

var (
	ErrPrincipalExists   = errors.New("principal with this email already exists")
	ErrPrincipalNotFound = errors.New("principal not found")

	// Returned for unknown email and wrong password alike
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenWrongKind = errors.New("token kind mismatch")

	ErrRefreshTokenMissing = errors.New("refresh token not provided")
)
