package schedule

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/identity"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/view"
)

// Matches the datetime-local input format.
const formTimeLayout = "2006-01-02T15:04"

// StaffResolver looks up the staff record behind an account.
type StaffResolver interface {
	ResolveStaff(ctx context.Context, accountID int64) (*identity.StaffRecord, error)
}

// Handler serves the instructor screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  StaffResolver
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver StaffResolver, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, resolver: resolver, templates: templates, csrf: csrf}
}

// MountRoutes registers the instructor routes. Callers mount this under the
// instructor-only group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showHome)
	r.Post("/reservas", h.handleReserve)
}

type instructorHomeData struct {
	Staff        *identity.StaffRecord
	NotLinked    bool
	Rooms        []Room
	Reservations []Reservation
}

func (h *Handler) showHome(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	id := sess.Identity()
	if id == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	data := instructorHomeData{}

	staff, err := h.resolver.ResolveStaff(r.Context(), id.UserID)
	switch {
	case errors.Is(err, shared.ErrNotLinked):
		// Recoverable: the account exists but has no personnel record yet.
		data.NotLinked = true
	case err != nil:
		h.logger.Error("resolve staff", slog.Int64("user_id", id.UserID), slog.Any("error", err))
		data.NotLinked = true
	default:
		data.Staff = staff
	}

	if rooms, err := h.service.ListRooms(r.Context()); err != nil {
		h.logger.Error("list rooms", slog.Any("error", err))
	} else {
		data.Rooms = rooms
	}
	if reservations, err := h.service.ReservationsFor(r.Context(), id.UserID); err != nil {
		h.logger.Error("list reservations", slog.Any("error", err))
	} else {
		data.Reservations = reservations
	}
	h.render(w, r, data)
}

func (h *Handler) handleReserve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	id := sess.Identity()
	if id == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	roomID, err := strconv.ParseInt(r.PostFormValue("room_id"), 10, 64)
	if err != nil || roomID <= 0 {
		h.redirectWithFlash(w, r, "danger", "Selecciona un aula válida.")
		return
	}
	startsAt, err1 := time.ParseInLocation(formTimeLayout, r.PostFormValue("starts_at"), time.Local)
	endsAt, err2 := time.ParseInLocation(formTimeLayout, r.PostFormValue("ends_at"), time.Local)
	if err1 != nil || err2 != nil {
		h.redirectWithFlash(w, r, "danger", "Revisa el formato de fecha y hora.")
		return
	}

	_, err = h.service.Reserve(r.Context(), id.UserID, roomID, startsAt, endsAt, r.PostFormValue("purpose"))
	switch {
	case errors.Is(err, shared.ErrValidation):
		h.redirectWithFlash(w, r, "danger", "Revisa el propósito y el horario de la reserva.")
	case errors.Is(err, shared.ErrDuplicate):
		h.redirectWithFlash(w, r, "danger", "El aula ya está reservada en ese horario.")
	case errors.Is(err, shared.ErrNotLinked):
		h.redirectWithFlash(w, r, "warning", "Tu cuenta aún no está vinculada a un registro de personal.")
	case errors.Is(err, shared.ErrNotFound):
		h.redirectWithFlash(w, r, "danger", "El aula seleccionada no existe.")
	case err != nil:
		h.logger.Error("create reservation", slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudo registrar la reserva.")
	default:
		h.redirectWithFlash(w, r, "success", "Reserva registrada.")
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, authz.LandingOrDefault(authz.RoleInstructor), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data instructorHomeData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var identityData *shared.Identity
	if sess != nil {
		flash = sess.PopFlash()
		identityData = sess.Identity()
	}
	viewData := view.TemplateData{
		Title:       "Portal docente",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Identity:    identityData,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/docente_home.html", viewData); err != nil {
		h.logger.Error("render instructor home", slog.Any("error", err))
	}
}
