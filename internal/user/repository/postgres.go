package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Betmate-ap/betmate-api/internal/user/domain"
)

const userColumns = `id, email, username, first_name, last_name, password_hash, email_verified, is_active, created_at, updated_at, last_login`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetByEmailOrUsername returns the user matching either value, or nil if none.
// The ORDER BY prefers the email match when both values hit different rows.
func (r *PostgresRepository) GetByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 OR username = $2
		ORDER BY (email = $1) DESC
		LIMIT 1`, email, username)
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	passwordHash := sql.NullString{String: u.PasswordHash, Valid: u.PasswordHash != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, first_name, last_name, password_hash, email_verified, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, passwordHash,
		u.EmailVerified, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// UpdateLastLogin sets the user's last_login (and updated_at) to at.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, at)
	return err
}

// SetActive toggles the account-active flag. Updating a missing user is not an error.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, time.Now().UTC())
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var passwordHash sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &passwordHash,
		&u.EmailVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if passwordHash.Valid {
		u.PasswordHash = passwordHash.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}
