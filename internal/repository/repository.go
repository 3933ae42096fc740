package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/salespipe/crmgate/internal/models"
)

type CreatePrincipalParams struct {
	Email          string
	Name           string
	Role           models.Role
	HashedPassword string
}

// Principal repository interface
type PrincipalRepo interface {
	// Create principal
	// If a principal with the email exists already has to return apperrors.ErrPrincipalExists
	CreatePrincipal(ctx context.Context, arg CreatePrincipalParams) (models.Principal, error)

	// Get principal by id or email
	// Email match is exact and case-sensitive
	// If principal not found must return apperrors.ErrPrincipalNotFound
	GetPrincipalByID(ctx context.Context, id uuid.UUID) (models.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (models.Principal, error)

	// List all principals ordered by creation time
	ListPrincipals(ctx context.Context) ([]models.Principal, error)
}
