package programs

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/view"
)

// Handler serves the coordination screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers the coordination routes. Callers mount this under the
// coordinator-only group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showHome)
	r.Post("/carreras", h.handleCreateCareer)
	r.Post("/inscripciones", h.handleEnroll)
}

type coordinationData struct {
	Careers     []Career
	Enrollments []Enrollment
}

func (h *Handler) showHome(w http.ResponseWriter, r *http.Request) {
	var data coordinationData
	var warn bool
	careers, err := h.service.ListCareers(r.Context())
	if err != nil {
		h.logger.Error("list careers", slog.Any("error", err))
		warn = true
	}
	data.Careers = careers
	enrollments, err := h.service.ListEnrollments(r.Context())
	if err != nil {
		h.logger.Error("list enrollments", slog.Any("error", err))
		warn = true
	}
	data.Enrollments = enrollments
	// Read failures degrade to an empty listing with a warning, not an
	// error page.
	if warn {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "No se pudo cargar parte de la información."})
		}
	}
	h.render(w, r, data)
}

func (h *Handler) handleCreateCareer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	_, err := h.service.CreateCareer(r.Context(), r.PostFormValue("code"), r.PostFormValue("name"))
	switch {
	case errors.Is(err, shared.ErrValidation):
		h.redirectWithFlash(w, r, "danger", "Clave y nombre de la carrera son obligatorios.")
	case errors.Is(err, shared.ErrDuplicate):
		h.redirectWithFlash(w, r, "danger", "Ya existe una carrera con esa clave.")
	case err != nil:
		h.logger.Error("create career", slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudo registrar la carrera.")
	default:
		h.redirectWithFlash(w, r, "success", "Carrera registrada.")
	}
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	careerID, err := strconv.ParseInt(r.PostFormValue("career_id"), 10, 64)
	if err != nil || careerID <= 0 {
		h.redirectWithFlash(w, r, "danger", "Selecciona una carrera válida.")
		return
	}
	semester, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("semester")))
	if err != nil {
		h.redirectWithFlash(w, r, "danger", "El semestre debe ser un número.")
		return
	}
	_, err = h.service.Enroll(r.Context(), r.PostFormValue("control_number"), careerID, semester)
	switch {
	case errors.Is(err, shared.ErrValidation):
		h.redirectWithFlash(w, r, "danger", "Revisa el número de control y el semestre (1 a 12).")
	case errors.Is(err, shared.ErrNotFound):
		h.redirectWithFlash(w, r, "danger", "No existe un estudiante con ese número de control.")
	case errors.Is(err, shared.ErrDuplicate):
		h.redirectWithFlash(w, r, "danger", "El estudiante ya está inscrito en esa carrera.")
	case err != nil:
		h.logger.Error("enroll student", slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudo registrar la inscripción.")
	default:
		h.redirectWithFlash(w, r, "success", "Inscripción registrada.")
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, authz.LandingOrDefault(authz.RoleCoordinator), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data coordinationData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var identity *shared.Identity
	if sess != nil {
		flash = sess.PopFlash()
		identity = sess.Identity()
	}
	viewData := view.TemplateData{
		Title:       "Coordinación",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Identity:    identity,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/coordinacion_home.html", viewData); err != nil {
		h.logger.Error("render coordination", slog.Any("error", err))
	}
}
