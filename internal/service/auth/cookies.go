package auth

import (
	"net/http"
	"time"

	"github.com/salespipe/crmgate/internal/apperrors"
	"github.com/salespipe/crmgate/internal/models"
)

// Cookie delivery contract:
//   - accessToken: HttpOnly, whole application path, short TTL
//   - refreshToken: HttpOnly, scoped to the refresh/logout path only
//   - csrfToken: script readable so the client can echo it in X-CSRF-Token
//
// All three are SameSite=Lax and Secure outside development.

// SetSessionCookies writes the full token triple, used at login
func (s *Service) SetSessionCookies(w http.ResponseWriter, session models.Session) {
	s.setAccessPair(w, session)

	http.SetCookie(w, &http.Cookie{
		Name:     models.CookieRefresh,
		Value:    session.Refresh.Value,
		Path:     s.refreshCookiePath,
		MaxAge:   cookieMaxAge(session.Refresh.ExpiresAt),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetRefreshedCookies overwrites the access and csrf cookies only.
// The refresh token cookie is deliberately left untouched.
func (s *Service) SetRefreshedCookies(w http.ResponseWriter, session models.Session) {
	s.setAccessPair(w, session)
}

// ClearSessionCookies expires all three cookies at their issuance paths
func (s *Service) ClearSessionCookies(w http.ResponseWriter) {
	expire := func(name string, path string, httpOnly bool) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			HttpOnly: httpOnly,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}

	expire(models.CookieAccess, "/", true)
	expire(models.CookieRefresh, s.refreshCookiePath, true)
	expire(models.CookieCSRF, "/", false)
}

// ReadRefreshToken extracts the refresh token cookie from the request
func (s *Service) ReadRefreshToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(models.CookieRefresh)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrRefreshTokenMissing
	}
	return cookie.Value, nil
}

func (s *Service) setAccessPair(w http.ResponseWriter, session models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     models.CookieAccess,
		Value:    session.Access.Value,
		Path:     "/",
		MaxAge:   cookieMaxAge(session.Access.ExpiresAt),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     models.CookieCSRF,
		Value:    session.CSRF.Value,
		Path:     "/",
		MaxAge:   cookieMaxAge(session.CSRF.ExpiresAt),
		HttpOnly: false,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieMaxAge(expiresAt time.Time) int {
	return int(time.Until(expiresAt).Round(time.Second).Seconds())
}
