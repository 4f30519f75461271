package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/aulanet/aulanet/internal/shared"
)

// Service wraps library loan rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListLoans returns loans matching the filter.
func (s *Service) ListLoans(ctx context.Context, filter Filter) ([]Loan, error) {
	filter.ControlNumber = strings.TrimSpace(filter.ControlNumber)
	return s.repo.ListLoans(ctx, filter)
}

// Lend records a new loan. The student must already exist; the repository
// reports shared.ErrNotFound otherwise.
func (s *Service) Lend(ctx context.Context, controlNumber, bookTitle string) (int64, error) {
	controlNumber = strings.TrimSpace(controlNumber)
	bookTitle = strings.TrimSpace(bookTitle)
	if controlNumber == "" || bookTitle == "" {
		return 0, fmt.Errorf("%w: número de control y título son obligatorios", shared.ErrValidation)
	}
	return s.repo.CreateLoan(ctx, controlNumber, bookTitle)
}

// Return marks a loan as returned.
func (s *Service) Return(ctx context.Context, loanID int64) error {
	return s.repo.ReturnLoan(ctx, loanID)
}
