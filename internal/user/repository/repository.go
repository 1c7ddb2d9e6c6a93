package repository

import (
	"context"
	"time"

	"github.com/Betmate-ap/betmate-api/internal/user/domain"
)

// Repository defines persistence for users. Implementations return nil (not an
// error) for missing rows; errors are reserved for database failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByEmailOrUsername returns the user matching either value. When different
	// users match each, the email match wins so duplicate-email reporting takes
	// priority over duplicate-username.
	GetByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// SetActive toggles the account-active flag (admin deactivation/reactivation).
	SetActive(ctx context.Context, id string, active bool) error
}
