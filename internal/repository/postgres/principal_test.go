package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespipe/crmgate/internal/apperrors"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/repository"
	"github.com/salespipe/crmgate/internal/testutil"
)

func Test_PrincipalRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	params := func(email string) repository.CreatePrincipalParams {
		return repository.CreatePrincipalParams{
			Email:          email,
			Name:           "Test Principal",
			Role:           models.RoleSales,
			HashedPassword: "hashedpassword123",
		}
	}

	t.Run("create principal ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}

			p, err := r.CreatePrincipal(t.Context(), params("create@example.com"))

			require.NoError(t, err)
			assert.Equal(t, "create@example.com", p.Email)
			assert.Equal(t, "Test Principal", p.Name)
			assert.Equal(t, models.RoleSales, p.Role)
			assert.Equal(t, "hashedpassword123", p.HashedPassword)
			assert.NotEqual(t, uuid.Nil, p.ID)
			assert.WithinDuration(t, time.Now(), p.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create duplicate email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}

			_, err := r.CreatePrincipal(t.Context(), params("dup@example.com"))
			require.NoError(t, err)

			_, err = r.CreatePrincipal(t.Context(), params("dup@example.com"))

			assert.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrPrincipalExists, "should return well known error")
		})
	})

	t.Run("get principal by id ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}
			created, err := r.CreatePrincipal(t.Context(), params("byid@example.com"))
			require.NoError(t, err)

			got, err := r.GetPrincipalByID(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, created.Email, got.Email)
			assert.Equal(t, created.Role, got.Role)
			assert.Equal(t, created.HashedPassword, got.HashedPassword)
		})
	})

	t.Run("get principal by id not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}

			_, err := r.GetPrincipalByID(t.Context(), uuid.New())

			assert.ErrorIs(t, err, apperrors.ErrPrincipalNotFound, "should return well known error")
		})
	})

	t.Run("get principal by email ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}
			created, err := r.CreatePrincipal(t.Context(), params("byemail@example.com"))
			require.NoError(t, err)

			got, err := r.GetPrincipalByEmail(t.Context(), "byemail@example.com")

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("get principal by email not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}

			_, err := r.GetPrincipalByEmail(t.Context(), "nobody@example.com")

			assert.ErrorIs(t, err, apperrors.ErrPrincipalNotFound)
		})
	})

	t.Run("email lookup is case sensitive", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}
			_, err := r.CreatePrincipal(t.Context(), params("case@example.com"))
			require.NoError(t, err)

			_, err = r.GetPrincipalByEmail(t.Context(), "Case@Example.com")

			assert.ErrorIs(t, err, apperrors.ErrPrincipalNotFound, "emails compare byte for byte")
		})
	})

	t.Run("role outside allowed set rejected by schema", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}

			p := params("badrole@example.com")
			p.Role = models.Role("superuser")
			_, err := r.CreatePrincipal(t.Context(), p)

			assert.Error(t, err, "check constraint should reject unknown roles")
		})
	})

	t.Run("list principals", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PrincipalRepo{DB: tx}

			_, err := r.CreatePrincipal(t.Context(), params("first@example.com"))
			require.NoError(t, err)
			_, err = r.CreatePrincipal(t.Context(), params("second@example.com"))
			require.NoError(t, err)

			got, err := r.ListPrincipals(t.Context())

			require.NoError(t, err)
			require.Len(t, got, 2)

			emails := []string{got[0].Email, got[1].Email}
			assert.ElementsMatch(t, []string{"first@example.com", "second@example.com"}, emails)
		})
	})
}
