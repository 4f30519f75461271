package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/aulanet/aulanet/internal/auth"
	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/shared"
	_ "github.com/aulanet/aulanet/testing"
)

type stubRepo struct {
	cred     *auth.Credential
	byEmail  *auth.Account
	newHash  string
	attempts []auth.LoginAttempt
}

func (s *stubRepo) FindCredentialByIdentifier(ctx context.Context, identifier string) (*auth.Credential, error) {
	if s.cred == nil {
		return nil, shared.ErrNotFound
	}
	return s.cred, nil
}

func (s *stubRepo) FindAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	if s.byEmail == nil {
		return nil, shared.ErrNotFound
	}
	return s.byEmail, nil
}

func (s *stubRepo) UpdatePasswordHash(ctx context.Context, accountID int64, hash string) error {
	s.newHash = hash
	return nil
}

func (s *stubRepo) RecordLoginAttempt(ctx context.Context, attempt auth.LoginAttempt) error {
	s.attempts = append(s.attempts, attempt)
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hashed)
}

func testCredential(t *testing.T, active bool, roles ...string) *auth.Credential {
	t.Helper()
	return &auth.Credential{
		Account: auth.Account{
			ID:       1,
			Username: "maria",
			Email:    "maria@uni.local",
			IsActive: active,
			Roles:    roles,
		},
		PasswordHash: mustHash(t, "correct"),
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := &stubRepo{cred: testCredential(t, true, authz.RoleStudent)}
	service := auth.NewService(repo, nil)

	acct, err := service.Authenticate(context.Background(), "maria", "correct")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if acct.Username != "maria" || !acct.HasRole(authz.RoleStudent) {
		t.Fatalf("unexpected account: %+v", acct)
	}
}

func TestAuthenticateUnknownIdentifier(t *testing.T) {
	service := auth.NewService(&stubRepo{}, nil)

	if _, err := service.Authenticate(context.Background(), "nadie", "whatever"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := &stubRepo{cred: testCredential(t, true, authz.RoleStudent)}
	service := auth.NewService(repo, nil)

	if _, err := service.Authenticate(context.Background(), "maria", "incorrect"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	// Deactivated accounts fail even with the correct password, and with the
	// same error as a wrong password.
	repo := &stubRepo{cred: testCredential(t, false, authz.RoleStudent)}
	service := auth.NewService(repo, nil)

	if _, err := service.Authenticate(context.Background(), "maria", "correct"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func newTestSession(t *testing.T) (*shared.SessionManager, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", 4*time.Hour, false)
	sess, err := manager.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return manager, sess
}

func TestStartSessionRoleNotGranted(t *testing.T) {
	service := auth.NewService(&stubRepo{}, nil)
	_, sess := newTestSession(t)
	acct := &auth.Account{ID: 1, Username: "maria", Roles: []string{authz.RoleStudent}}

	err := service.StartSession(sess, acct, authz.RoleAdministrator, 4*time.Hour)
	if !errors.Is(err, shared.ErrRoleNotGranted) {
		t.Fatalf("expected ErrRoleNotGranted, got %v", err)
	}
	if sess.Identity() != nil {
		t.Fatal("no identity should be bound after a rejected start")
	}
}

func TestStartSessionReplacesPriorState(t *testing.T) {
	service := auth.NewService(&stubRepo{}, nil)
	_, sess := newTestSession(t)
	sess.Set("leftover", "value")
	priorID := sess.ID

	acct := &auth.Account{ID: 1, Username: "maria", Email: "maria@uni.local", Roles: []string{authz.RoleStudent, authz.RoleInstructor}}
	if err := service.StartSession(sess, acct, authz.RoleStudent, 4*time.Hour); err != nil {
		t.Fatalf("start session: %v", err)
	}

	if sess.ID == priorID {
		t.Fatal("session ID should rotate at login")
	}
	if sess.Get("leftover") != "" {
		t.Fatal("prior session values must be cleared")
	}
	identity := sess.Identity()
	if identity == nil {
		t.Fatal("identity missing")
	}
	if identity.ActiveRole != authz.RoleStudent {
		t.Fatalf("active role = %q", identity.ActiveRole)
	}
	if len(identity.Roles) != 2 {
		t.Fatalf("granted roles = %v", identity.Roles)
	}
	wantExpiry := time.Now().Add(4 * time.Hour)
	if identity.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || identity.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Fatalf("expiry not absolute 4h from login: %v", identity.ExpiresAt)
	}
}

func TestEndSessionIdempotent(t *testing.T) {
	service := auth.NewService(&stubRepo{}, nil)
	manager, sess := newTestSession(t)
	acct := &auth.Account{ID: 1, Username: "maria", Roles: []string{authz.RoleStudent}}
	if err := service.StartSession(sess, acct, authz.RoleStudent, time.Hour); err != nil {
		t.Fatalf("start session: %v", err)
	}

	manager.Destroy(sess)
	if sess.Identity() != nil {
		t.Fatal("identity should be gone after destroy")
	}
	// Ending twice is a no-op, not an error.
	manager.Destroy(sess)
	if sess.Identity() != nil {
		t.Fatal("identity should stay gone")
	}
}

func TestResetPasswordHashesApplicationSide(t *testing.T) {
	repo := &stubRepo{byEmail: &auth.Account{ID: 9, Username: "maria", Email: "maria@uni.local", IsActive: true}}
	service := auth.NewService(repo, nil)

	plain, acct, err := service.ResetPassword(context.Background(), "maria@uni.local")
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if acct.ID != 9 {
		t.Fatalf("unexpected account %d", acct.ID)
	}
	if plain == "" || repo.newHash == "" {
		t.Fatal("expected generated password and stored hash")
	}
	if repo.newHash == plain {
		t.Fatal("plaintext must never reach the repository")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(repo.newHash), []byte(plain)); err != nil {
		t.Fatalf("stored hash does not match generated password: %v", err)
	}
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	service := auth.NewService(&stubRepo{}, nil)

	if _, _, err := service.ResetPassword(context.Background(), "nadie@uni.local"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 8; i++ {
		pw, err := auth.GenerateTemporaryPassword(12)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(pw) != 12 {
			t.Fatalf("length = %d", len(pw))
		}
		seen[pw] = struct{}{}
	}
	if len(seen) < 8 {
		t.Fatal("generated passwords repeat suspiciously often")
	}
}
