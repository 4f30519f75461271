package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aulanet/aulanet/internal/library"
	"github.com/aulanet/aulanet/internal/shared"
	_ "github.com/aulanet/aulanet/testing"
)

type stubRepo struct {
	loans    []library.Loan
	students map[string]string
}

func (s *stubRepo) ListLoans(ctx context.Context, filter library.Filter) ([]library.Loan, error) {
	var out []library.Loan
	for _, l := range s.loans {
		if filter.ControlNumber != "" && l.ControlNumber != filter.ControlNumber {
			continue
		}
		if filter.OutstandingOnly && !l.Outstanding() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *stubRepo) CreateLoan(ctx context.Context, controlNumber, bookTitle string) (int64, error) {
	name, ok := s.students[controlNumber]
	if !ok {
		return 0, shared.ErrNotFound
	}
	id := int64(len(s.loans) + 1)
	s.loans = append(s.loans, library.Loan{ID: id, ControlNumber: controlNumber, StudentName: name, BookTitle: bookTitle, LoanedAt: time.Now()})
	return id, nil
}

func (s *stubRepo) ReturnLoan(ctx context.Context, loanID int64) error {
	for i := range s.loans {
		if s.loans[i].ID == loanID && s.loans[i].Outstanding() {
			now := time.Now()
			s.loans[i].ReturnedAt = &now
			return nil
		}
	}
	return shared.ErrNotFound
}

func TestLendRequiresExistingStudent(t *testing.T) {
	repo := &stubRepo{students: map[string]string{"20230042": "María López"}}
	service := library.NewService(repo)

	if _, err := service.Lend(context.Background(), "99999999", "El Quijote"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := service.Lend(context.Background(), "20230042", "El Quijote"); err != nil {
		t.Fatalf("lend: %v", err)
	}
}

func TestLendValidatesInput(t *testing.T) {
	service := library.NewService(&stubRepo{students: map[string]string{"20230042": "María López"}})

	if _, err := service.Lend(context.Background(), "20230042", "  "); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestReturnStampsOnce(t *testing.T) {
	repo := &stubRepo{students: map[string]string{"20230042": "María López"}}
	service := library.NewService(repo)
	id, err := service.Lend(context.Background(), "20230042", "El Quijote")
	if err != nil {
		t.Fatalf("lend: %v", err)
	}

	if err := service.Return(context.Background(), id); err != nil {
		t.Fatalf("return: %v", err)
	}
	// A second return of the same loan reports not found rather than
	// overwriting the timestamp.
	if err := service.Return(context.Background(), id); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListLoansFilters(t *testing.T) {
	repo := &stubRepo{students: map[string]string{"20230042": "María López", "20230077": "Juan Pérez"}}
	service := library.NewService(repo)
	first, _ := service.Lend(context.Background(), "20230042", "El Quijote")
	service.Lend(context.Background(), "20230042", "Cien años de soledad")
	service.Lend(context.Background(), "20230077", "Rayuela")
	if err := service.Return(context.Background(), first); err != nil {
		t.Fatalf("return: %v", err)
	}

	byStudent, err := service.ListLoans(context.Background(), library.Filter{ControlNumber: " 20230042 "})
	if err != nil {
		t.Fatalf("list by student: %v", err)
	}
	if len(byStudent) != 2 {
		t.Fatalf("loans for student = %d", len(byStudent))
	}

	outstanding, err := service.ListLoans(context.Background(), library.Filter{ControlNumber: "20230042", OutstandingOnly: true})
	if err != nil {
		t.Fatalf("list outstanding: %v", err)
	}
	if len(outstanding) != 1 || outstanding[0].BookTitle != "Cien años de soledad" {
		t.Fatalf("outstanding = %+v", outstanding)
	}
}
