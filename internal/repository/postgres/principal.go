package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/salespipe/crmgate/internal/apperrors"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/repository"
)

type PrincipalRepo struct {
	DB DBTX
}

var _ repository.PrincipalRepo = (*PrincipalRepo)(nil)

const createPrincipal = `-- name: CreatePrincipal
INSERT INTO principals (id, email, name, role, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, email, name, role, password_hash
`

func (r *PrincipalRepo) CreatePrincipal(ctx context.Context, arg repository.CreatePrincipalParams) (models.Principal, error) {
	rows, _ := r.DB.Query(ctx, createPrincipal, uuid.New(), arg.Email, arg.Name, arg.Role, arg.HashedPassword)
	principal, err := pgx.CollectOneRow(rows, rowToPrincipal)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return principal, apperrors.ErrPrincipalExists
		}

		return principal, fmt.Errorf("db error: %w", err)
	}

	return principal, nil
}

const getPrincipalByID = `-- name: getPrincipalByID
SELECT id, created_at, email, name, role, password_hash FROM principals
WHERE id = $1
`

func (r *PrincipalRepo) GetPrincipalByID(ctx context.Context, id uuid.UUID) (models.Principal, error) {
	rows, _ := r.DB.Query(ctx, getPrincipalByID, id)
	principal, err := pgx.CollectOneRow(rows, rowToPrincipal)

	switch {
	case err == nil:
		return principal, nil
	case errors.Is(err, pgx.ErrNoRows):
		return principal, apperrors.ErrPrincipalNotFound
	default:
		return principal, fmt.Errorf("db error: %w", err)
	}
}

const getPrincipalByEmail = `-- name: getPrincipalByEmail
SELECT id, created_at, email, name, role, password_hash FROM principals
WHERE email = $1
`

func (r *PrincipalRepo) GetPrincipalByEmail(ctx context.Context, email string) (models.Principal, error) {
	rows, _ := r.DB.Query(ctx, getPrincipalByEmail, email)
	principal, err := pgx.CollectOneRow(rows, rowToPrincipal)

	switch {
	case err == nil:
		return principal, nil
	case errors.Is(err, pgx.ErrNoRows):
		return principal, apperrors.ErrPrincipalNotFound
	default:
		return principal, fmt.Errorf("db error: %w", err)
	}
}

const listPrincipals = `-- name: listPrincipals
SELECT id, created_at, email, name, role, password_hash FROM principals
ORDER BY created_at
`

func (r *PrincipalRepo) ListPrincipals(ctx context.Context) ([]models.Principal, error) {
	rows, _ := r.DB.Query(ctx, listPrincipals)
	principals, err := pgx.CollectRows(rows, rowToPrincipal)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return principals, nil
}

func rowToPrincipal(row pgx.CollectableRow) (models.Principal, error) {
	var p models.Principal
	err := row.Scan(&p.ID, &p.CreatedAt, &p.Email, &p.Name, &p.Role, &p.HashedPassword)
	return p, err
}
