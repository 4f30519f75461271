package programs

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

// RepositoryPort defines data access for careers and enrollments.
type RepositoryPort interface {
	ListCareers(ctx context.Context) ([]Career, error)
	CreateCareer(ctx context.Context, code, name string) (int64, error)
	ListEnrollments(ctx context.Context) ([]Enrollment, error)
	EnrollmentsByControlNumber(ctx context.Context, controlNumber string) ([]Enrollment, error)
	CreateEnrollment(ctx context.Context, controlNumber string, careerID int64, semester int) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListCareers returns every career ordered by code.
func (r *Repository) ListCareers(ctx context.Context) ([]Career, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name FROM careers ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("programs: list careers: %w", err)
	}
	defer rows.Close()
	var careers []Career
	for rows.Next() {
		var c Career
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("programs: scan career: %w", err)
		}
		careers = append(careers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("programs: careers rows: %w", err)
	}
	return careers, nil
}

// CreateCareer inserts a new career. A repeated code reports
// shared.ErrDuplicate.
func (r *Repository) CreateCareer(ctx context.Context, code, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO careers (code, name) VALUES ($1, $2) RETURNING id`, code, name).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrDuplicate
		}
		return 0, fmt.Errorf("programs: create career: %w", err)
	}
	return id, nil
}

const enrollmentColumns = `
	e.id, s.control_number, s.full_name, c.name, e.semester, e.enrolled_at`

// ListEnrollments returns every enrollment, newest first.
func (r *Repository) ListEnrollments(ctx context.Context) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		JOIN careers c ON c.id = e.career_id
		ORDER BY e.enrolled_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("programs: list enrollments: %w", err)
	}
	defer rows.Close()
	return scanEnrollments(rows)
}

// EnrollmentsByControlNumber returns one student's enrollments.
func (r *Repository) EnrollmentsByControlNumber(ctx context.Context, controlNumber string) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		JOIN careers c ON c.id = e.career_id
		WHERE s.control_number = $1
		ORDER BY e.enrolled_at DESC`, controlNumber)
	if err != nil {
		return nil, fmt.Errorf("programs: enrollments by student: %w", err)
	}
	defer rows.Close()
	return scanEnrollments(rows)
}

// CreateEnrollment registers a student in a career. The student is resolved by
// control number inside the transaction; an unknown one reports
// shared.ErrNotFound.
func (r *Repository) CreateEnrollment(ctx context.Context, controlNumber string, careerID int64, semester int) (int64, error) {
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
			`INSERT INTO enrollments (student_id, career_id, semester, enrolled_at) VALUES ($1, $2, $3, NOW()) RETURNING id`,
			studentID, careerID, semester).Scan(&id)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrDuplicate
		}
		return 0, fmt.Errorf("programs: create enrollment: %w", err)
	}
	return id, nil
}

func scanEnrollments(rows pgx.Rows) ([]Enrollment, error) {
	var enrollments []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.ControlNumber, &e.StudentName, &e.CareerName, &e.Semester, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("programs: scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("programs: enrollment rows: %w", err)
	}
	return enrollments, nil
}

var _ RepositoryPort = (*Repository)(nil)
