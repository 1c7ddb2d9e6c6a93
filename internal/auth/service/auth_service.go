package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Betmate-ap/betmate-api/internal/audit"
	refreshtokendomain "github.com/Betmate-ap/betmate-api/internal/refreshtoken/domain"
	refreshtokenrepo "github.com/Betmate-ap/betmate-api/internal/refreshtoken/repository"
	"github.com/Betmate-ap/betmate-api/internal/security"
	userdomain "github.com/Betmate-ap/betmate-api/internal/user/domain"
)

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SignupInput is the input for Signup.
type SignupInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// UserView is the sanitized user representation returned to callers.
// It never carries the password hash.
type UserView struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	EmailVerified bool       `json:"emailVerified"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastLogin     *time.Time `json:"lastLogin"`
}

// AuthPayload holds the outcome of Signup, Login, or Refresh: the sanitized
// user plus a fresh access/refresh token pair.
type AuthPayload struct {
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
}

// RefreshTokenRepo is the minimal refresh token repository needed by the auth service.
type RefreshTokenRepo interface {
	Create(ctx context.Context, t *refreshtokendomain.RefreshToken) error
	FindByValue(ctx context.Context, token string) (*refreshtokendomain.RefreshToken, error)
	Replace(ctx context.Context, oldToken string, newToken *refreshtokendomain.RefreshToken) error
	DeleteByValue(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// HashObserver receives the wall-clock duration of each password hash or
// verification, e.g. to feed a latency histogram. May be nil.
type HashObserver func(d time.Duration)

// AuthService implements signup, login, refresh rotation, logout, and user lookup.
// It holds no mutable state; every method is a self-contained unit of work
// over the injected collaborators.
type AuthService struct {
	userRepo    UserRepo
	tokenRepo   RefreshTokenRepo
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	auditLogger audit.AuditLogger
	observeHash HashObserver
}

// NewAuthService returns an AuthService with the given dependencies.
// auditLogger and observeHash may be nil.
func NewAuthService(
	userRepo UserRepo,
	tokenRepo RefreshTokenRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditLogger audit.AuditLogger,
	observeHash HashObserver,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		hasher:      hasher,
		tokens:      tokens,
		auditLogger: auditLogger,
		observeHash: observeHash,
	}
}

// Signup creates a user with the given credentials and returns a fresh token pair.
// The new account starts active with an unverified email.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthPayload, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	if err := validateSignupInput(input); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Email collision is reported first when both values are taken.
		if existing.Email == input.Email {
			return nil, ErrEmailAlreadyExists
		}
		return nil, ErrUsernameTaken
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		Username:     input.Username,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
		// Verified later via email; active from the start.
		EmailVerified: false,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	payload, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, user.ID, "signup", "auth", "")
	return payload, nil
}

// Login authenticates with email/password and returns a fresh token pair.
// A missing user and a wrong password produce the same error; a deactivated
// account is reported as such before the password is verified (externally
// observable ordering, kept deliberately).
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		s.logAudit(ctx, "", "login_failure", "auth", `{"reason":"invalid_credentials"}`)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.logAudit(ctx, user.ID, "login_failure", "auth", `{"reason":"account_deactivated"}`)
		return nil, ErrAccountDeactivated
	}
	if err := s.comparePassword(user.PasswordHash, password); err != nil {
		s.logAudit(ctx, user.ID, "login_failure", "auth", `{"reason":"invalid_credentials"}`)
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	user.UpdatedAt = now

	payload, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, user.ID, "login_success", "auth", "")
	return payload, nil
}

// Refresh exchanges a refresh token for a new token pair, rotating the
// persisted record. The presented token is single-use: its record is deleted
// in the same transaction that inserts the replacement.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthPayload, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	if _, err := s.tokens.ValidateRefresh(refreshToken); err != nil {
		return nil, ErrInvalidRefreshToken
	}

	record, err := s.tokenRepo.FindByValue(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if record == nil || record.ExpiresAt.Before(time.Now().UTC()) {
		return nil, ErrRefreshTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	accessToken, _, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	newRefresh, refreshExp, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	newRecord := &refreshtokendomain.RefreshToken{
		Token:     newRefresh,
		UserID:    user.ID,
		ExpiresAt: refreshExp,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tokenRepo.Replace(ctx, refreshToken, newRecord); err != nil {
		if errors.Is(err, refreshtokenrepo.ErrNotFound) {
			// A concurrent refresh already consumed the presented token.
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	s.logAudit(ctx, user.ID, "refresh", "auth", "")
	return &AuthPayload{
		User:         sanitizeUser(user),
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, nil
}

// Logout deletes the persisted record for the refresh token. Unknown tokens
// are a no-op, so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokenRepo.DeleteByValue(ctx, refreshToken); err != nil {
		return err
	}
	s.logAudit(ctx, "", "logout", "auth", "")
	return nil
}

// GetUserByID returns the sanitized user for id. Missing and deactivated
// users are indistinguishable to the caller.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*UserView, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUserNotFound
	}
	view := sanitizeUser(user)
	return &view, nil
}

// Deactivate disables the account and revokes every outstanding refresh
// token so no session can be extended past the deactivation.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	if err := s.userRepo.SetActive(ctx, userID, false); err != nil {
		return err
	}
	if err := s.tokenRepo.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	s.logAudit(ctx, userID, "deactivate", "user", "")
	return nil
}

// issueTokens issues an access/refresh pair for the user and persists the
// refresh record with the same expiry the token itself carries.
func (s *AuthService) issueTokens(ctx context.Context, user *userdomain.User) (*AuthPayload, error) {
	accessToken, _, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	record := &refreshtokendomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: refreshExp,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return &AuthPayload{
		User:         sanitizeUser(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	start := time.Now()
	hash, err := s.hasher.Hash([]byte(password))
	if s.observeHash != nil {
		s.observeHash(time.Since(start))
	}
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return hash, nil
}

func (s *AuthService) comparePassword(hash, password string) error {
	start := time.Now()
	err := s.hasher.Compare(hash, []byte(password))
	if s.observeHash != nil {
		s.observeHash(time.Since(start))
	}
	return err
}

func (s *AuthService) logAudit(ctx context.Context, userID, action, resource, metadata string) {
	if s.auditLogger == nil {
		return
	}
	s.auditLogger.LogEvent(ctx, userID, action, resource, metadata)
}

// validateSignupInput runs the signup checks in order and returns the first
// failure; valid input returns nil. No side effects.
func validateSignupInput(input SignupInput) error {
	if !emailRegexp.MatchString(input.Email) {
		return ErrInvalidEmail
	}
	if len(input.Username) < 3 || len(input.Username) > 30 {
		return ErrInvalidUsername
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return ErrInvalidName
	}
	if len(input.Password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

func sanitizeUser(u *userdomain.User) UserView {
	return UserView{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		LastLogin:     u.LastLogin,
	}
}
