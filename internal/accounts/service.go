package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/aulanet/aulanet/internal/auth"
	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/shared"
)

const tempPasswordLength = 12

// AuditRecorder persists administrative mutations for traceability.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps account administration rules.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateAccountInput carries the fields of the new-account form.
type CreateAccountInput struct {
	Username string
	Email    string
	Roles    []string
}

// List returns every account ordered by username.
func (s *Service) List(ctx context.Context) ([]ManagedAccount, error) {
	return s.repo.ListAccounts(ctx)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id int64) (*ManagedAccount, error) {
	return s.repo.GetAccount(ctx, id)
}

// Create registers a new account with a generated temporary password and the
// given role set. The plaintext password is returned only so the caller can
// mail it; the stored value is a bcrypt hash produced here, never by the
// database.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateAccountInput) (int64, string, error) {
	roles, err := normalizeRoles(in.Roles)
	if err != nil {
		return 0, "", err
	}
	plain, err := auth.GenerateTemporaryPassword(tempPasswordLength)
	if err != nil {
		return 0, "", fmt.Errorf("accounts: generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return 0, "", fmt.Errorf("accounts: hash password: %w", err)
	}
	id, err := s.repo.CreateAccount(ctx, in.Username, in.Email, string(hash), roles)
	if err != nil {
		return 0, "", err
	}
	s.recordAudit(ctx, actorID, "account.create", id, map[string]any{"username": in.Username, "roles": roles})
	return id, plain, nil
}

// ReplaceRoles swaps the account's role set in one step. The set read back
// afterwards does not depend on the order roles were submitted in.
func (s *Service) ReplaceRoles(ctx context.Context, actorID, accountID int64, newRoles []string) error {
	roles, err := normalizeRoles(newRoles)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceRoles(ctx, accountID, roles); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "account.replace_roles", accountID, map[string]any{"roles": roles})
	return nil
}

// SetActive blocks or unblocks the account. A blocked account cannot log in
// but keeps its role assignments.
func (s *Service) SetActive(ctx context.Context, actorID, accountID int64, active bool) error {
	if err := s.repo.SetActive(ctx, accountID, active); err != nil {
		return err
	}
	action := "account.block"
	if active {
		action = "account.unblock"
	}
	s.recordAudit(ctx, actorID, action, accountID, nil)
	return nil
}

// ResetPassword issues a fresh temporary password for the account and returns
// the plaintext for mailing along with the account it belongs to.
func (s *Service) ResetPassword(ctx context.Context, actorID, accountID int64) (string, *ManagedAccount, error) {
	acct, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return "", nil, err
	}
	plain, err := auth.GenerateTemporaryPassword(tempPasswordLength)
	if err != nil {
		return "", nil, fmt.Errorf("accounts: generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("accounts: hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, accountID, string(hash)); err != nil {
		return "", nil, err
	}
	s.recordAudit(ctx, actorID, "account.reset_password", accountID, nil)
	return plain, acct, nil
}

// Delete removes the account and every role assignment.
func (s *Service) Delete(ctx context.Context, actorID, accountID int64) error {
	if err := s.repo.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "account.delete", accountID, nil)
	return nil
}

// normalizeRoles deduplicates, sorts and validates the submitted role names
// against the catalog.
func normalizeRoles(roles []string) ([]string, error) {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if !authz.Known(role) {
			return nil, fmt.Errorf("%w: rol desconocido %q", shared.ErrValidation, role)
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Strings(out)
	return out, nil
}

// recordAudit writes the trail entry; failures are logged, never propagated.
func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, accountID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: strconv.FormatInt(accountID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}
