package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulanet/aulanet/internal/shared"
)

// RepositoryPort defines the foreign-key lookups behind the resolver.
type RepositoryPort interface {
	StudentByUserID(ctx context.Context, userID int64) (*StudentRecord, error)
	StaffByUserID(ctx context.Context, userID int64) (*StaffRecord, error)
}

// Repository provides PostgreSQL backed lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StudentByUserID fetches the student record linked to an account.
func (r *Repository) StudentByUserID(ctx context.Context, userID int64) (*StudentRecord, error) {
	const query = `
		SELECT s.control_number, s.full_name, COALESCE(c.name, ''), s.semester
		FROM students s
		LEFT JOIN careers c ON c.id = s.career_id
		WHERE s.user_id = $1`
	var rec StudentRecord
	err := r.pool.QueryRow(ctx, query, userID).Scan(&rec.ControlNumber, &rec.FullName, &rec.Career, &rec.Semester)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotLinked
		}
		return nil, fmt.Errorf("identity: student by user: %w", err)
	}
	return &rec, nil
}

// StaffByUserID fetches the staff record linked to an account.
func (r *Repository) StaffByUserID(ctx context.Context, userID int64) (*StaffRecord, error) {
	const query = `
		SELECT personnel_code, full_name, COALESCE(department, '')
		FROM staff
		WHERE user_id = $1`
	var rec StaffRecord
	err := r.pool.QueryRow(ctx, query, userID).Scan(&rec.PersonnelCode, &rec.FullName, &rec.Department)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotLinked
		}
		return nil, fmt.Errorf("identity: staff by user: %w", err)
	}
	return &rec, nil
}

var _ RepositoryPort = (*Repository)(nil)
