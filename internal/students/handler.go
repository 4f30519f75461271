package students

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aulanet/aulanet/internal/identity"
	"github.com/aulanet/aulanet/internal/library"
	"github.com/aulanet/aulanet/internal/programs"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/view"
)

// StudentResolver looks up the student record behind an account.
type StudentResolver interface {
	ResolveStudent(ctx context.Context, accountID int64) (*identity.StudentRecord, error)
}

// EnrollmentLister returns a student's enrollments.
type EnrollmentLister interface {
	EnrollmentsForStudent(ctx context.Context, controlNumber string) ([]programs.Enrollment, error)
}

// LoanLister returns loans matching a filter.
type LoanLister interface {
	ListLoans(ctx context.Context, filter library.Filter) ([]library.Loan, error)
}

// Handler serves the student portal home.
type Handler struct {
	logger      *slog.Logger
	resolver    StudentResolver
	enrollments EnrollmentLister
	loans       LoanLister
	templates   *view.Engine
	csrf        *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, resolver StudentResolver, enrollments EnrollmentLister, loans LoanLister, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		resolver:    resolver,
		enrollments: enrollments,
		loans:       loans,
		templates:   templates,
		csrf:        csrf,
	}
}

// MountRoutes registers the student routes. Callers mount this under the
// student-only group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showHome)
}

type studentHomeData struct {
	Student     *identity.StudentRecord
	NotLinked   bool
	Enrollments []programs.Enrollment
	Loans       []library.Loan
}

func (h *Handler) showHome(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	id := sess.Identity()
	if id == nil {
		// The session can cross its absolute deadline between the route
		// guard and this handler.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	data := studentHomeData{}

	student, err := h.resolver.ResolveStudent(r.Context(), id.UserID)
	switch {
	case errors.Is(err, shared.ErrNotLinked):
		// Recoverable: the account exists but no student record points at it.
		data.NotLinked = true
	case err != nil:
		h.logger.Error("resolve student", slog.Int64("user_id", id.UserID), slog.Any("error", err))
		data.NotLinked = true
	default:
		data.Student = student
		if enrollments, err := h.enrollments.EnrollmentsForStudent(r.Context(), student.ControlNumber); err != nil {
			h.logger.Error("list enrollments", slog.Any("error", err))
		} else {
			data.Enrollments = enrollments
		}
		if loans, err := h.loans.ListLoans(r.Context(), library.Filter{ControlNumber: student.ControlNumber}); err != nil {
			h.logger.Error("list loans", slog.Any("error", err))
		} else {
			data.Loans = loans
		}
	}
	h.render(w, r, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data studentHomeData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var identityData *shared.Identity
	if sess != nil {
		flash = sess.PopFlash()
		identityData = sess.Identity()
	}
	viewData := view.TemplateData{
		Title:       "Portal del estudiante",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Identity:    identityData,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/estudiante_home.html", viewData); err != nil {
		h.logger.Error("render student home", slog.Any("error", err))
	}
}

// ShowHomeForTest exposes the GET handler for tests.
func (h *Handler) ShowHomeForTest(w http.ResponseWriter, r *http.Request) {
	h.showHome(w, r)
}
