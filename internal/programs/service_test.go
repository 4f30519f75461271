package programs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aulanet/aulanet/internal/programs"
	"github.com/aulanet/aulanet/internal/shared"
	_ "github.com/aulanet/aulanet/testing"
)

type stubRepo struct {
	careers     []programs.Career
	enrollments []programs.Enrollment
	students    map[string]struct{}
}

func (s *stubRepo) ListCareers(ctx context.Context) ([]programs.Career, error) {
	return s.careers, nil
}

func (s *stubRepo) CreateCareer(ctx context.Context, code, name string) (int64, error) {
	for _, c := range s.careers {
		if c.Code == code {
			return 0, shared.ErrDuplicate
		}
	}
	id := int64(len(s.careers) + 1)
	s.careers = append(s.careers, programs.Career{ID: id, Code: code, Name: name})
	return id, nil
}

func (s *stubRepo) ListEnrollments(ctx context.Context) ([]programs.Enrollment, error) {
	return s.enrollments, nil
}

func (s *stubRepo) EnrollmentsByControlNumber(ctx context.Context, controlNumber string) ([]programs.Enrollment, error) {
	var out []programs.Enrollment
	for _, e := range s.enrollments {
		if e.ControlNumber == controlNumber {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubRepo) CreateEnrollment(ctx context.Context, controlNumber string, careerID int64, semester int) (int64, error) {
	if _, ok := s.students[controlNumber]; !ok {
		return 0, shared.ErrNotFound
	}
	id := int64(len(s.enrollments) + 1)
	s.enrollments = append(s.enrollments, programs.Enrollment{ID: id, ControlNumber: controlNumber, Semester: semester})
	return id, nil
}

func TestCreateCareerNormalizesCode(t *testing.T) {
	repo := &stubRepo{}
	service := programs.NewService(repo)

	if _, err := service.CreateCareer(context.Background(), " isc ", "Ingeniería en Sistemas"); err != nil {
		t.Fatalf("create career: %v", err)
	}
	if repo.careers[0].Code != "ISC" {
		t.Fatalf("code = %q", repo.careers[0].Code)
	}
}

func TestCreateCareerRequiresFields(t *testing.T) {
	service := programs.NewService(&stubRepo{})

	if _, err := service.CreateCareer(context.Background(), "", "Nombre"); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEnrollSemesterBounds(t *testing.T) {
	repo := &stubRepo{students: map[string]struct{}{"20230042": {}}}
	service := programs.NewService(repo)

	for _, semester := range []int{0, -1, 13, 99} {
		if _, err := service.Enroll(context.Background(), "20230042", 1, semester); !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("semester %d: expected ErrValidation, got %v", semester, err)
		}
	}
	for _, semester := range []int{1, 6, 12} {
		if _, err := service.Enroll(context.Background(), "20230042", 1, semester); err != nil {
			t.Fatalf("semester %d: %v", semester, err)
		}
	}
}

func TestEnrollUnknownStudent(t *testing.T) {
	service := programs.NewService(&stubRepo{students: map[string]struct{}{}})

	if _, err := service.Enroll(context.Background(), "99999999", 1, 3); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
