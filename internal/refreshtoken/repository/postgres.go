package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Betmate-ap/betmate-api/internal/refreshtoken/domain"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh token repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh token record. A duplicate token value fails
// with ErrDuplicateToken instead of silently overwriting.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`,
		t.Token, t.UserID, t.ExpiresAt, t.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateToken
	}
	return err
}

// FindByValue returns the record for the token string, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindByValue(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1`, token).
		Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Replace deletes oldToken and inserts newToken in a single transaction.
// When the delete affects no row the transaction is rolled back and
// ErrNotFound is returned, so two concurrent rotations of the same token
// yield exactly one winner.
func (r *PostgresRepository) Replace(ctx context.Context, oldToken string, newToken *domain.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, oldToken)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`,
		newToken.Token, newToken.UserID, newToken.ExpiresAt, newToken.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return err
	}
	return tx.Commit()
}

// DeleteByValue removes the record for the token string. Missing rows are not an error.
func (r *PostgresRepository) DeleteByValue(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

// DeleteAllForUser removes every refresh token owned by the user.
func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
