package models

import (
	"time"
)

// TokenKind discriminates access tokens from refresh tokens.
// A token of one kind must never be accepted where the other is expected.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Cookie and header names shared by the gateway and the identity service
const (
	CookieAccess  = "accessToken"
	CookieRefresh = "refreshToken"
	CookieCSRF    = "csrfToken"

	// Header the client must echo the csrfToken cookie value in
	// on every state-mutating request (double-submit pattern)
	CSRFHeader = "X-CSRF-Token"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Session is the token triple delivered as cookies at login.
// On refresh only Access and CSRF are re-minted, Refresh is echoed unchanged.
type Session struct {
	Access  IssuedToken
	Refresh IssuedToken
	CSRF    IssuedToken
}
