package identity

import "context"

// Service resolves accounts to their linked records. Lookups happen per
// request; nothing is cached across requests.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ResolveStudent returns the student record for an account, or
// shared.ErrNotLinked when the account has none. Callers surface that as a
// recoverable notice, never a crash.
func (s *Service) ResolveStudent(ctx context.Context, accountID int64) (*StudentRecord, error) {
	return s.repo.StudentByUserID(ctx, accountID)
}

// ResolveStaff returns the staff record for an account, or
// shared.ErrNotLinked when the account has none.
func (s *Service) ResolveStaff(ctx context.Context, accountID int64) (*StaffRecord, error) {
	return s.repo.StaffByUserID(ctx, accountID)
}
