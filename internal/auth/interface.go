package auth

import "time"

// AdminAuthenticator defines the contract for the single-admin login.
// This enables mocking for handler tests.
type AdminAuthenticator interface {
	// CheckPassword reports whether the submitted password is the admin password
	CheckPassword(password string) bool

	// IssueToken signs a session token for the admin
	IssueToken() (*Token, error)

	// VerifyToken checks a session token's signature, issuer, audience and expiry
	VerifyToken(tokenString string) (*Claims, error)

	// TTL is the session lifetime
	TTL() time.Duration
}

// Ensure Service implements AdminAuthenticator
var _ AdminAuthenticator = (*Service)(nil)
