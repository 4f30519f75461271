package students_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/identity"
	"github.com/aulanet/aulanet/internal/library"
	"github.com/aulanet/aulanet/internal/programs"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/students"
	"github.com/aulanet/aulanet/internal/view"
	_ "github.com/aulanet/aulanet/testing"
)

type stubResolver struct {
	student *identity.StudentRecord
}

func (s *stubResolver) ResolveStudent(ctx context.Context, accountID int64) (*identity.StudentRecord, error) {
	if s.student == nil {
		return nil, shared.ErrNotLinked
	}
	return s.student, nil
}

type stubEnrollments struct {
	enrollments []programs.Enrollment
}

func (s *stubEnrollments) EnrollmentsForStudent(ctx context.Context, controlNumber string) ([]programs.Enrollment, error) {
	return s.enrollments, nil
}

type stubLoans struct {
	loans []library.Loan
	seen  library.Filter
}

func (s *stubLoans) ListLoans(ctx context.Context, filter library.Filter) ([]library.Loan, error) {
	s.seen = filter
	return s.loans, nil
}

func newStudentRequest(t *testing.T) (*http.Request, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", 4*time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/estudiante", nil)
	sess, err := manager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	now := time.Now()
	sess.Renew()
	sess.BindIdentity(shared.Identity{
		UserID:     7,
		Username:   "maria",
		Roles:      []string{authz.RoleStudent},
		ActiveRole: authz.RoleStudent,
		IssuedAt:   now,
		ExpiresAt:  now.Add(4 * time.Hour),
	})
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func newStudentHandler(t *testing.T, resolver *stubResolver, loans *stubLoans) *students.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	enrollments := &stubEnrollments{enrollments: []programs.Enrollment{
		{ID: 1, ControlNumber: "20230042", CareerName: "Ingeniería en Sistemas", Semester: 4, EnrolledAt: time.Now()},
	}}
	return students.NewHandler(nil, resolver, enrollments, loans, templates, shared.NewCSRFManager("csrfsecret"))
}

func TestStudentHomeShowsOwnRecords(t *testing.T) {
	resolver := &stubResolver{student: &identity.StudentRecord{ControlNumber: "20230042", FullName: "María López", Career: "Ingeniería en Sistemas", Semester: 4}}
	loans := &stubLoans{loans: []library.Loan{{ID: 1, ControlNumber: "20230042", BookTitle: "El Quijote", LoanedAt: time.Now()}}}
	handler := newStudentHandler(t, resolver, loans)

	req, _ := newStudentRequest(t)
	res := httptest.NewRecorder()
	handler.ShowHomeForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "20230042") || !strings.Contains(body, "María López") {
		t.Fatal("student record missing from the page")
	}
	if !strings.Contains(body, "El Quijote") {
		t.Fatal("loan listing missing from the page")
	}
	// Only the student's own loans are requested.
	if loans.seen.ControlNumber != "20230042" {
		t.Fatalf("loan filter = %+v", loans.seen)
	}
}

func TestStudentHomeExpiredSessionRedirects(t *testing.T) {
	// The absolute deadline can pass between the route guard and the
	// handler; the handler must redirect instead of dereferencing a
	// vanished identity.
	handler := newStudentHandler(t, &stubResolver{}, &stubLoans{})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", 4*time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/estudiante", nil)
	sess, err := manager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.Renew()
	sess.BindIdentity(shared.Identity{
		UserID:     7,
		Username:   "maria",
		Roles:      []string{authz.RoleStudent},
		ActiveRole: authz.RoleStudent,
		IssuedAt:   time.Now().Add(-5 * time.Hour),
		ExpiresAt:  time.Now().Add(-time.Second),
	})
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.ShowHomeForTest(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected /login, got %q", loc)
	}
}

func TestStudentHomeNotLinkedIsRecoverable(t *testing.T) {
	handler := newStudentHandler(t, &stubResolver{}, &stubLoans{})

	req, _ := newStudentRequest(t)
	res := httptest.NewRecorder()
	handler.ShowHomeForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "no está vinculada") {
		t.Fatal("expected the not-linked notice")
	}
}
