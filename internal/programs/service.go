package programs

import (
	"context"
	"fmt"
	"strings"

	"github.com/aulanet/aulanet/internal/shared"
)

// Service wraps academic program rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListCareers returns the career catalog.
func (s *Service) ListCareers(ctx context.Context) ([]Career, error) {
	return s.repo.ListCareers(ctx)
}

// CreateCareer registers a new career after normalizing its code.
func (s *Service) CreateCareer(ctx context.Context, code, name string) (int64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return 0, fmt.Errorf("%w: clave y nombre son obligatorios", shared.ErrValidation)
	}
	return s.repo.CreateCareer(ctx, code, name)
}

// ListEnrollments returns every enrollment.
func (s *Service) ListEnrollments(ctx context.Context) ([]Enrollment, error) {
	return s.repo.ListEnrollments(ctx)
}

// EnrollmentsForStudent returns a student's enrollments.
func (s *Service) EnrollmentsForStudent(ctx context.Context, controlNumber string) ([]Enrollment, error) {
	return s.repo.EnrollmentsByControlNumber(ctx, controlNumber)
}

// Enroll registers a student in a career. The semester must fall in
// [MinSemester, MaxSemester]; anything else is a validation error, never a
// constraint crash.
func (s *Service) Enroll(ctx context.Context, controlNumber string, careerID int64, semester int) (int64, error) {
	controlNumber = strings.TrimSpace(controlNumber)
	if controlNumber == "" {
		return 0, fmt.Errorf("%w: número de control obligatorio", shared.ErrValidation)
	}
	if semester < MinSemester || semester > MaxSemester {
		return 0, fmt.Errorf("%w: semestre fuera de rango (%d..%d)", shared.ErrValidation, MinSemester, MaxSemester)
	}
	return s.repo.CreateEnrollment(ctx, controlNumber, careerID, semester)
}
