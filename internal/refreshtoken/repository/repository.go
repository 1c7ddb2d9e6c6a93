// Package repository declares the persistence contract for refresh tokens.
package repository

import (
	"context"
	"errors"

	"github.com/Betmate-ap/betmate-api/internal/refreshtoken/domain"
)

// ErrNotFound is returned by Replace when the presented token has no live
// record — typically because a concurrent rotation already consumed it. The
// auth service maps this to its invalid-refresh-token error; this is the
// replay-protection boundary.
var ErrNotFound = errors.New("refresh token not found")

// ErrDuplicateToken is returned by Create when a record with the same token
// value already exists. Token values carry enough entropy that a collision is
// a hard error, never a branch to recover from.
var ErrDuplicateToken = errors.New("refresh token already exists")

// Repository defines persistence for refresh tokens. FindByValue returns nil
// (not an error) for missing rows; errors are reserved for database failures.
type Repository interface {
	// Create inserts a new record. A duplicate token value fails with ErrDuplicateToken.
	Create(ctx context.Context, t *domain.RefreshToken) error

	// FindByValue returns the record for the opaque token string, or nil if absent.
	FindByValue(ctx context.Context, token string) (*domain.RefreshToken, error)

	// Replace atomically deletes the record for oldToken and inserts newToken in
	// one transaction. If oldToken has no live record (e.g. a concurrent Replace
	// won), nothing is inserted and ErrNotFound is returned.
	Replace(ctx context.Context, oldToken string, newToken *domain.RefreshToken) error

	// DeleteByValue removes the record for the token string. Deleting a
	// non-existent token is not an error (logout is idempotent).
	DeleteByValue(ctx context.Context, token string) error

	// DeleteAllForUser removes every record owned by the user.
	DeleteAllForUser(ctx context.Context, userID string) error
}
