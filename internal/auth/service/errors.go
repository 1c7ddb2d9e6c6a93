package service

import "errors"

// Sentinel errors for the auth service; the HTTP handler maps them to stable
// machine-readable codes and statuses. Anything outside this set is an
// infrastructure failure and must be redacted to the caller.
var (
	// Signup input validation (fail-fast, first failing check wins).
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidUsername = errors.New("username must be 3-30 characters")
	ErrInvalidName     = errors.New("first and last name are required")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong = errors.New("password is too long")

	ErrEmailAlreadyExists  = errors.New("user with this email already exists")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDeactivated  = errors.New("account is deactivated")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired or invalid")
	ErrUserNotFound        = errors.New("user not found")
)

// Code returns the stable machine-readable code for a service error, or
// "" when err is not part of the taxonomy (i.e. an infrastructure error).
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		return "INVALID_EMAIL"
	case errors.Is(err, ErrInvalidUsername):
		return "INVALID_USERNAME"
	case errors.Is(err, ErrInvalidName):
		return "INVALID_NAME"
	case errors.Is(err, ErrWeakPassword):
		return "WEAK_PASSWORD"
	case errors.Is(err, ErrPasswordTooLong):
		return "PASSWORD_TOO_LONG"
	case errors.Is(err, ErrEmailAlreadyExists):
		return "EMAIL_ALREADY_EXISTS"
	case errors.Is(err, ErrUsernameTaken):
		return "USERNAME_TAKEN"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrAccountDeactivated):
		return "ACCOUNT_DEACTIVATED"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "INVALID_REFRESH_TOKEN"
	case errors.Is(err, ErrRefreshTokenExpired):
		return "REFRESH_TOKEN_EXPIRED"
	case errors.Is(err, ErrUserNotFound):
		return "USER_NOT_FOUND"
	default:
		return ""
	}
}
