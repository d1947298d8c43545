package models

import (
	"time"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Fingerprint of the device a token pair was issued to
// Captured at issuance time and compared again on every pair validation
type Fingerprint struct {
	IPAddr    string
	UserAgent string
}

// TokenRecord is one persisted issued token, keyed by (UserID, TokenID)
type TokenRecord struct {
	UserID  string
	TokenID string
	Type    TokenType

	// For refresh tokens: token id of the paired access token
	LinkedTokenID string

	Fingerprint Fingerprint
	Revoked     bool
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type IssuedToken struct {
	TokenID   string
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by the session Manager or AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
