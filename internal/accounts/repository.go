package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulanet/aulanet/internal/platform/db"
	"github.com/aulanet/aulanet/internal/shared"
)

const uniqueViolation = "23505"

// RepositoryPort defines data access for account administration.
type RepositoryPort interface {
	ListAccounts(ctx context.Context) ([]ManagedAccount, error)
	GetAccount(ctx context.Context, id int64) (*ManagedAccount, error)
	CreateAccount(ctx context.Context, username, email, passwordHash string, roles []string) (int64, error)
	ReplaceRoles(ctx context.Context, accountID int64, roles []string) error
	SetActive(ctx context.Context, accountID int64, active bool) error
	UpdatePasswordHash(ctx context.Context, accountID int64, hash string) error
	DeleteAccount(ctx context.Context, accountID int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `
	u.id, u.username, u.email, u.is_active, u.created_at, u.updated_at,
	COALESCE(ARRAY_AGG(ro.name ORDER BY ro.name) FILTER (WHERE ro.name IS NOT NULL), '{}') AS roles`

// ListAccounts returns all accounts with their granted roles.
func (r *Repository) ListAccounts(ctx context.Context) ([]ManagedAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id
		GROUP BY u.id, u.username, u.email, u.is_active, u.created_at, u.updated_at
		ORDER BY u.username`)
	if err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	defer rows.Close()
	var accounts []ManagedAccount
	for rows.Next() {
		var acct ManagedAccount
		if err := rows.Scan(&acct.ID, &acct.Username, &acct.Email, &acct.IsActive, &acct.CreatedAt, &acct.UpdatedAt, &acct.Roles); err != nil {
			return nil, fmt.Errorf("accounts: scan: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accounts: rows: %w", err)
	}
	return accounts, nil
}

// GetAccount fetches one account by id.
func (r *Repository) GetAccount(ctx context.Context, id int64) (*ManagedAccount, error) {
	var acct ManagedAccount
	err := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id
		WHERE u.id = $1
		GROUP BY u.id, u.username, u.email, u.is_active, u.created_at, u.updated_at`, id).
		Scan(&acct.ID, &acct.Username, &acct.Email, &acct.IsActive, &acct.CreatedAt, &acct.UpdatedAt, &acct.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("accounts: get: %w", err)
	}
	return &acct, nil
}

// CreateAccount inserts the account and its role assignments in one
// transaction.
func (r *Repository) CreateAccount(ctx context.Context, username, email, passwordHash string, roles []string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash, is_active) VALUES ($1, $2, $3, TRUE) RETURNING id`,
			username, email, passwordHash).Scan(&id); err != nil {
			return err
		}
		return insertRoles(ctx, tx, id, roles)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, shared.ErrDuplicate
		}
		return 0, fmt.Errorf("accounts: create: %w", err)
	}
	return id, nil
}

// ReplaceRoles swaps the full assignment set atomically. Concurrent readers
// never observe a partial role list.
func (r *Repository) ReplaceRoles(ctx context.Context, accountID int64, roles []string) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, accountID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, accountID); err != nil {
			return err
		}
		return insertRoles(ctx, tx, accountID, roles)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("accounts: replace roles: %w", err)
	}
	return nil
}

// SetActive toggles the block/unblock flag.
func (r *Repository) SetActive(ctx context.Context, accountID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, accountID, active)
	if err != nil {
		return fmt.Errorf("accounts: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePasswordHash stores a new hash for the account.
func (r *Repository) UpdatePasswordHash(ctx context.Context, accountID int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, accountID, hash)
	if err != nil {
		return fmt.Errorf("accounts: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteAccount removes the account and its assignments ("baja").
func (r *Repository) DeleteAccount(ctx context.Context, accountID int64) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, accountID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, accountID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("accounts: delete: %w", err)
	}
	return nil
}

func insertRoles(ctx context.Context, tx pgx.Tx, accountID int64, roles []string) error {
	for _, role := range roles {
		tag, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, id FROM roles WHERE name = $2
			ON CONFLICT DO NOTHING`, accountID, role)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// Zero rows here means the role name is absent from the catalog
			// table; the service validates beforehand, so treat as corrupt
			// reference data.
			return fmt.Errorf("role %q missing from catalog", role)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ RepositoryPort = (*Repository)(nil)
