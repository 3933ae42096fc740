package tokencodec

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/salespipe/crmgate/internal/apperrors"
	"github.com/salespipe/crmgate/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultSigningMethod   = "HS256"

	csrfTokenBytesLen = 16
)

// Claims carried by every issued token.
// Kind tells access tokens and refresh tokens apart; verification
// fails hard when the kind does not match the expected one.
type Claims struct {
	jwt.RegisteredClaims
	Role  models.Role      `json:"role"`
	Email string           `json:"email"`
	Name  string           `json:"name"`
	Kind  models.TokenKind `json:"token_kind"`
}

// PrincipalID returns the parsed subject claim
func (c Claims) PrincipalID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject claim", apperrors.ErrTokenInvalid)
	}
	return id, nil
}

// Codec configuration with sensible defaults
type Config struct {
	// Secret key both binaries share to sign and verify tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set then default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Codec struct {
	key string
	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*Codec, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &Codec{
		key:        cfg.SecretKey,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue signs a token of the given kind for the principal
func (c *Codec) Issue(p models.Principal, kind models.TokenKind, ttl time.Duration) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(
		c.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   p.ID.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Role:  p.Role,
			Email: p.Email,
			Name:  p.Name,
			Kind:  kind,
		},
	)

	signed, err := token.SignedString([]byte(c.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing %s token. Err: %w", kind, err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

func (c *Codec) IssueAccess(p models.Principal) (models.IssuedToken, error) {
	return c.Issue(p, models.TokenKindAccess, c.accessTTL)
}

func (c *Codec) IssueRefresh(p models.Principal) (models.IssuedToken, error) {
	return c.Issue(p, models.TokenKindRefresh, c.refreshTTL)
}

// Verify checks signature, expiry and kind. All or nothing: any failure
// returns zero Claims and one of the apperrors token sentinels.
// Expiry is checked against the wall clock with no leeway.
func (c *Codec) Verify(tokenString string, expectedKind models.TokenKind) (Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(c.key), nil },
		jwt.WithValidMethods([]string{c.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenExpired, err)
	default:
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	if claims.Kind != expectedKind {
		return Claims{}, fmt.Errorf("%w: got %q want %q", apperrors.ErrTokenWrongKind, claims.Kind, expectedKind)
	}

	return *claims, nil
}

// NewCSRFToken mints a random opaque value for the double-submit cookie.
// It is not related to the signed tokens in any way.
func NewCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytesLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("error while generating csrf token. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}
