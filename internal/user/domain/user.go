package domain

import (
	"errors"
	"time"
)

// User is the core user entity. PasswordHash is empty for accounts with no
// local credential (e.g. created by an external provider).
type User struct {
	ID            string
	Email         string
	Username      string
	FirstName     string
	LastName      string
	PasswordHash  string
	EmailVerified bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLogin     *time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	return nil
}
