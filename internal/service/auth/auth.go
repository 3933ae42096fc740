package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/salespipe/crmgate/internal/apperrors"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/repository"
	"github.com/salespipe/crmgate/internal/service/auth/tokencodec"
)

// Structurally valid bcrypt hash compared against when the email is
// unknown, so the unknown-email path costs the same as a wrong password
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Interface to create or compare principal password hashes
type Hasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher used during registration and login
	// Defaults to BcryptHasher
	Hasher Hasher

	// Cookie delivery options
	// Secure should be set in any non-development deployment
	SecureCookies bool

	// Path the refresh token cookie is scoped to, as the browser sees it.
	// Defaults to the identity service gateway mount
	RefreshCookiePath string
}

// Session issuer: authenticates principals and mints the cookie-delivered
// token triple. Stateless by design, there is no server-side session table;
// validity of every token derives from signature and expiry alone.
type Service struct {
	codec      *tokencodec.Codec
	hasher     Hasher
	principals repository.PrincipalRepo

	secureCookies     bool
	refreshCookiePath string
}

func NewService(cfg Config, codec *tokencodec.Codec, principals repository.PrincipalRepo) (*Service, error) {
	if codec == nil || principals == nil {
		return nil, errors.New("codec and principal repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	refreshPath := cfg.RefreshCookiePath
	if refreshPath == "" {
		refreshPath = "/auth"
	}

	return &Service{
		codec:             codec,
		hasher:            hasher,
		principals:        principals,
		secureCookies:     cfg.SecureCookies,
		refreshCookiePath: refreshPath,
	}, nil
}

type RegisterParams struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

func (s *Service) Register(ctx context.Context, arg RegisterParams) (models.Principal, error) {
	if arg.Role == "" {
		arg.Role = models.RoleSales
	}
	if !arg.Role.Valid() {
		return models.Principal{}, fmt.Errorf("unknown role %q", arg.Role)
	}

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return models.Principal{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	principal, err := s.principals.CreatePrincipal(ctx, repository.CreatePrincipalParams{
		Email:          arg.Email,
		Name:           arg.Name,
		Role:           arg.Role,
		HashedPassword: hash,
	})
	if err != nil {
		return models.Principal{}, err
	}

	return principal, nil
}

// Login authenticates by email and password and mints a full session.
// Unknown email and wrong password both come back as ErrInvalidCredentials,
// never distinguished, to avoid account enumeration.
func (s *Service) Login(ctx context.Context, email string, password string) (models.Principal, models.Session, error) {
	principal, err := s.principals.GetPrincipalByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrPrincipalNotFound) {
			// Burn a compare anyway so timing does not leak existence
			_ = s.hasher.Compare(dummyPasswordHash, password)
			return models.Principal{}, models.Session{}, apperrors.ErrInvalidCredentials
		}
		return models.Principal{}, models.Session{}, fmt.Errorf("principal lookup failed. Err: %w", err)
	}

	if err := s.hasher.Compare(principal.HashedPassword, password); err != nil {
		return models.Principal{}, models.Session{}, apperrors.ErrInvalidCredentials
	}

	session, err := s.issueSession(principal)
	if err != nil {
		return models.Principal{}, models.Session{}, err
	}

	return principal, session, nil
}

// Refresh exchanges a valid refresh token for fresh access and csrf tokens.
// The refresh token itself is not rotated: it is echoed back unchanged and
// stays valid until its own expiry. There is no revocation list, a leaked
// refresh token keeps working for its full lifetime.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	claims, err := s.codec.Verify(refreshToken, models.TokenKindRefresh)
	if err != nil {
		return models.Session{}, err
	}

	id, err := claims.PrincipalID()
	if err != nil {
		return models.Session{}, err
	}

	principal, err := s.principals.GetPrincipalByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrPrincipalNotFound) {
			return models.Session{}, fmt.Errorf("%w: subject no longer exists", apperrors.ErrTokenInvalid)
		}
		return models.Session{}, fmt.Errorf("principal lookup failed. Err: %w", err)
	}

	access, err := s.codec.IssueAccess(principal)
	if err != nil {
		return models.Session{}, err
	}

	csrf, err := tokencodec.NewCSRFToken()
	if err != nil {
		return models.Session{}, err
	}

	return models.Session{
		Access:  access,
		Refresh: models.IssuedToken{Value: refreshToken, ExpiresAt: claims.ExpiresAt.Time},
		CSRF:    models.IssuedToken{Value: csrf, ExpiresAt: time.Now().Add(s.codec.RefreshTTL())},
	}, nil
}

// VerifyAccess validates a bearer access token. Used by handlers behind the
// gateway: upstream services re-verify with the shared secret instead of
// trusting the gateway blindly.
func (s *Service) VerifyAccess(_ context.Context, token string) (tokencodec.Claims, error) {
	return s.codec.Verify(token, models.TokenKindAccess)
}

// GetPrincipal returns the fresh principal record for the given claims
func (s *Service) GetPrincipal(ctx context.Context, claims tokencodec.Claims) (models.Principal, error) {
	id, err := claims.PrincipalID()
	if err != nil {
		return models.Principal{}, err
	}
	return s.principals.GetPrincipalByID(ctx, id)
}

// ListPrincipals returns every registered principal
func (s *Service) ListPrincipals(ctx context.Context) ([]models.Principal, error) {
	return s.principals.ListPrincipals(ctx)
}

func (s *Service) issueSession(principal models.Principal) (models.Session, error) {
	access, err := s.codec.IssueAccess(principal)
	if err != nil {
		return models.Session{}, err
	}

	refresh, err := s.codec.IssueRefresh(principal)
	if err != nil {
		return models.Session{}, err
	}

	csrf, err := tokencodec.NewCSRFToken()
	if err != nil {
		return models.Session{}, err
	}

	return models.Session{
		Access:  access,
		Refresh: refresh,
		CSRF:    models.IssuedToken{Value: csrf, ExpiresAt: refresh.ExpiresAt},
	}, nil
}
