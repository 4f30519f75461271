package library

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/view"
)

// Handler serves the library screens.
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

// MountRoutes registers the library routes. Callers mount this under the
// librarian-only group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listLoans)
	r.Post("/prestamos", h.handleLend)
	r.Post("/prestamos/{id}/devolucion", h.handleReturn)
}

type loansPageData struct {
	Loans  []Loan
	Filter Filter
}

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		ControlNumber:   r.URL.Query().Get("estudiante"),
		OutstandingOnly: r.URL.Query().Get("pendientes") == "1",
	}
	loans, err := h.service.ListLoans(r.Context(), filter)
	if err != nil {
		h.logger.Error("list loans", slog.Any("error", err))
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "No se pudieron cargar los préstamos."})
		}
	}
	h.render(w, r, loansPageData{Loans: loans, Filter: filter})
}

func (h *Handler) handleLend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	_, err := h.service.Lend(r.Context(), r.PostFormValue("control_number"), r.PostFormValue("book_title"))
	switch {
	case errors.Is(err, shared.ErrValidation):
		h.redirectWithFlash(w, r, "danger", "Número de control y título del libro son obligatorios.")
	case errors.Is(err, shared.ErrNotFound):
		h.redirectWithFlash(w, r, "danger", "No existe un estudiante con ese número de control.")
	case err != nil:
		h.logger.Error("create loan", slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudo registrar el préstamo.")
	default:
		h.redirectWithFlash(w, r, "success", "Préstamo registrado.")
	}
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}
	err = h.service.Return(r.Context(), id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.redirectWithFlash(w, r, "danger", "El préstamo no existe o ya fue devuelto.")
	case err != nil:
		h.logger.Error("return loan", slog.Int64("loan_id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudo registrar la devolución.")
	default:
		h.redirectWithFlash(w, r, "success", "Devolución registrada.")
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, authz.LandingOrDefault(authz.RoleLibrarian), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data loansPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var identity *shared.Identity
	if sess != nil {
		flash = sess.PopFlash()
		identity = sess.Identity()
	}
	viewData := view.TemplateData{
		Title:       "Biblioteca",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Identity:    identity,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/biblioteca_prestamos.html", viewData); err != nil {
		h.logger.Error("render loans", slog.Any("error", err))
	}
}
