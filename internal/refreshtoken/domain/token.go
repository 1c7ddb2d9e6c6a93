package domain

import "time"

// RefreshToken is the server-side record of an outstanding refresh token.
// The opaque token string is the primary lookup key; exactly one live record
// exists per active session, and rotation atomically swaps it for its
// replacement.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
