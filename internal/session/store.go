// Package session manages the mapping from opaque session identifiers to
// the authenticated user's email and Google access token.
package session

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long a session stays valid without a fresh login.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNotFound is returned when a session id is absent or expired. Callers
// treat it as an authorization failure, not a data error.
var ErrNotFound = errors.New("session not found")

// Store abstracts the session repository so the in-process map can be
// swapped for a shared backend in multi-process deployments.
type Store interface {
	// Create stores a new session and returns it with a fresh id.
	Create(ctx context.Context, email, accessToken string) (*Session, error)

	// Lookup resolves a session id. Expired or unknown ids yield ErrNotFound.
	Lookup(ctx context.Context, id string) (*Session, error)

	// Destroy removes a session. Destroying an absent id is a no-op.
	Destroy(ctx context.Context, id string) error
}

// Session is the stored authentication state for one logged-in browser.
// Persistence shapes live with each Store implementation; the access token
// here is always plaintext, in process memory only.
type Session struct {
	ID          string
	Email       string
	AccessToken string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
