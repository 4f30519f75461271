package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aulanet/aulanet/internal/shared"
)

const tempPasswordLength = 12

const tempPasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Authenticate validates identifier/password credentials. The identifier
// matches username or email. Unknown identifier, wrong password and inactive
// account all collapse into ErrInvalidCredentials so callers cannot
// enumerate accounts. The returned Account carries no password hash.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*Account, error) {
	cred, err := s.repo.FindCredentialByIdentifier(ctx, identifier)
	if err != nil {
		// Equalize work between the unknown-identifier and wrong-password
		// paths so response timing stays comparable.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
		return nil, shared.ErrInvalidCredentials
	}
	if !cred.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	acct := cred.Account
	return &acct, nil
}

// StartSession binds acct to sess under chosenRole. It fails with
// ErrRoleNotGranted when the role is not assigned to the account. On success
// the previous session record is discarded and a fresh ID issued before the
// new identity is written, so nothing leaks from a prior principal. The
// identity expires at an absolute deadline ttl from now; there is no sliding
// renewal.
func (s *Service) StartSession(sess *shared.Session, acct *Account, chosenRole string, ttl time.Duration) error {
	if !acct.HasRole(chosenRole) {
		return shared.ErrRoleNotGranted
	}
	now := time.Now()
	sess.Renew()
	sess.BindIdentity(shared.Identity{
		UserID:     acct.ID,
		Username:   acct.Username,
		Email:      acct.Email,
		Roles:      append([]string(nil), acct.Roles...),
		ActiveRole: chosenRole,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	})
	return nil
}

// RecordAttempt stores the login attempt audit trail. Failures are logged,
// never surfaced; auditing must not block authentication.
func (s *Service) RecordAttempt(ctx context.Context, attempt LoginAttempt) {
	if err := s.repo.RecordLoginAttempt(ctx, attempt); err != nil && s.logger != nil {
		s.logger.Warn("record login attempt", slog.Any("error", err))
	}
}

// ResetPassword generates a temporary password for the account behind email,
// hashes it application-side and commits the new hash. The plaintext is
// returned to the caller only so it can be mailed; it is never written to
// the database or logged. Returns shared.ErrNotFound when no active account
// matches; callers answer identically in both cases.
func (s *Service) ResetPassword(ctx context.Context, email string) (string, *Account, error) {
	acct, err := s.repo.FindAccountByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	plain, err := GenerateTemporaryPassword(tempPasswordLength)
	if err != nil {
		return "", nil, fmt.Errorf("auth: generate temporary password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("auth: hash temporary password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, acct.ID, string(hash)); err != nil {
		return "", nil, err
	}
	return plain, acct, nil
}

// GenerateTemporaryPassword returns a random alphanumeric password.
func GenerateTemporaryPassword(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
