package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulanet/aulanet/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindCredentialByIdentifier(ctx context.Context, identifier string) (*Credential, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdatePasswordHash(ctx context.Context, accountID int64, hash string) error
	RecordLoginAttempt(ctx context.Context, attempt LoginAttempt) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindCredentialByIdentifier fetches an active account matching the
// identifier against username or email, case-insensitively, together with
// its granted role names.
func (r *PGRepository) FindCredentialByIdentifier(ctx context.Context, identifier string) (*Credential, error) {
	const query = `
		SELECT u.id, u.username, u.email, u.password_hash, u.is_active,
		       COALESCE(ARRAY_AGG(ro.name ORDER BY ro.name) FILTER (WHERE ro.name IS NOT NULL), '{}') AS roles
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id
		WHERE u.is_active
		  AND (LOWER(u.username) = LOWER($1) OR LOWER(u.email) = LOWER($1))
		GROUP BY u.id, u.username, u.email, u.password_hash, u.is_active`
	var cred Credential
	err := r.pool.QueryRow(ctx, query, identifier).Scan(
		&cred.ID, &cred.Username, &cred.Email, &cred.PasswordHash, &cred.IsActive, &cred.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find credential: %w", err)
	}
	return &cred, nil
}

// FindAccountByEmail fetches an active account by email for password resets.
func (r *PGRepository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	const query = `
		SELECT u.id, u.username, u.email, u.is_active,
		       COALESCE(ARRAY_AGG(ro.name ORDER BY ro.name) FILTER (WHERE ro.name IS NOT NULL), '{}') AS roles
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id
		WHERE u.is_active AND LOWER(u.email) = LOWER($1)
		GROUP BY u.id, u.username, u.email, u.is_active`
	var acct Account
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&acct.ID, &acct.Username, &acct.Email, &acct.IsActive, &acct.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find account by email: %w", err)
	}
	return &acct, nil
}

// UpdatePasswordHash replaces the stored hash for an account.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, accountID int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, accountID, hash)
	if err != nil {
		return fmt.Errorf("auth: update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordLoginAttempt persists one attempt for auditing.
func (r *PGRepository) RecordLoginAttempt(ctx context.Context, attempt LoginAttempt) error {
	at := attempt.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_attempts (identifier, ip, user_agent, success, attempted_at) VALUES ($1, $2, $3, $4, $5)`,
		attempt.Identifier, attempt.IP, attempt.UserAgent, attempt.Success, at)
	if err != nil {
		return fmt.Errorf("auth: record login attempt: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
