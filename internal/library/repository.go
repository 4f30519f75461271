package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulanet/aulanet/internal/platform/db"
	"github.com/aulanet/aulanet/internal/shared"
)

// RepositoryPort defines data access for loans.
type RepositoryPort interface {
	ListLoans(ctx context.Context, filter Filter) ([]Loan, error)
	CreateLoan(ctx context.Context, controlNumber, bookTitle string) (int64, error)
	ReturnLoan(ctx context.Context, loanID int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListLoans returns loans matching the filter, newest first.
func (r *Repository) ListLoans(ctx context.Context, filter Filter) ([]Loan, error) {
	query := `
		SELECT l.id, s.control_number, s.full_name, l.book_title, l.loaned_at, l.returned_at
		FROM loans l
		JOIN students s ON s.id = l.student_id
		WHERE ($1 = '' OR s.control_number = $1)
		  AND (NOT $2 OR l.returned_at IS NULL)
		ORDER BY l.loaned_at DESC`
	rows, err := r.pool.Query(ctx, query, filter.ControlNumber, filter.OutstandingOnly)
	if err != nil {
		return nil, fmt.Errorf("library: list loans: %w", err)
	}
	defer rows.Close()
	var loans []Loan
	for rows.Next() {
		var l Loan
		if err := rows.Scan(&l.ID, &l.ControlNumber, &l.StudentName, &l.BookTitle, &l.LoanedAt, &l.ReturnedAt); err != nil {
			return nil, fmt.Errorf("library: scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("library: loan rows: %w", err)
	}
	return loans, nil
}

// CreateLoan records a loan for the student behind controlNumber. An unknown
// student reports shared.ErrNotFound.
func (r *Repository) CreateLoan(ctx context.Context, controlNumber, bookTitle string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var studentID int64
		err := tx.QueryRow(ctx, `SELECT id FROM students WHERE control_number = $1`, controlNumber).Scan(&studentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		return tx.QueryRow(ctx,
			`INSERT INTO loans (student_id, book_title, loaned_at) VALUES ($1, $2, NOW()) RETURNING id`,
			studentID, bookTitle).Scan(&id)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("library: create loan: %w", err)
	}
	return id, nil
}

// ReturnLoan stamps returned_at on an outstanding loan. A missing or already
// returned loan reports shared.ErrNotFound.
func (r *Repository) ReturnLoan(ctx context.Context, loanID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE loans SET returned_at = NOW() WHERE id = $1 AND returned_at IS NULL`, loanID)
	if err != nil {
		return fmt.Errorf("library: return loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
