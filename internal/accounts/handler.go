package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/view"
)

// MailEnqueuer queues notification email for asynchronous delivery.
type MailEnqueuer interface {
	EnqueueMail(ctx context.Context, to, subject, body string) error
}

// Handler serves the account administration screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	mail      MailEnqueuer
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, mail MailEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		mail:      mail,
		validator: validator.New(),
	}
}

// MountRoutes registers the administration routes. Callers mount this under
// the administrator-only group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listAccounts)
	r.Get("/cuentas/nueva", h.showCreateForm)
	r.Post("/cuentas", h.handleCreate)
	r.Post("/cuentas/{id}/roles", h.handleReplaceRoles)
	r.Post("/cuentas/{id}/estado", h.handleSetActive)
	r.Post("/cuentas/{id}/password", h.handleResetPassword)
	r.Post("/cuentas/{id}/baja", h.handleDelete)
}

type accountListData struct {
	Accounts []ManagedAccount
	Roles    []string
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/admin_accounts.html", "Cuentas", accountListData{Accounts: accounts, Roles: authz.Catalog()})
}

type accountForm struct {
	Username string `validate:"required,min=3,max=60"`
	Email    string `validate:"required,email"`
	Roles    []string
}

type accountFormData struct {
	Form   accountForm
	Roles  []string
	Errors map[string]string
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/admin_account_form.html", "Nueva cuenta", accountFormData{Roles: authz.Catalog()})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := accountForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    strings.ToLower(strings.TrimSpace(r.PostFormValue("email"))),
		Roles:    r.PostForm["roles"],
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		formErrors["general"] = "Revisa el usuario y el correo electrónico."
	}
	if len(form.Roles) == 0 {
		formErrors["roles"] = "Selecciona al menos un rol."
	}
	if len(formErrors) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, r, "pages/admin_account_form.html", "Nueva cuenta", accountFormData{Form: form, Roles: authz.Catalog(), Errors: formErrors})
		return
	}

	id, plain, err := h.service.Create(r.Context(), h.actorID(r), CreateAccountInput{
		Username: form.Username,
		Email:    form.Email,
		Roles:    form.Roles,
	})
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		formErrors["general"] = "El usuario o correo ya está registrado."
	case errors.Is(err, shared.ErrValidation):
		formErrors["roles"] = "Alguno de los roles seleccionados no existe."
	case err != nil:
		h.logger.Error("create account", slog.Any("error", err))
		formErrors["general"] = "No se pudo crear la cuenta, intenta más tarde."
	}
	if len(formErrors) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, r, "pages/admin_account_form.html", "Nueva cuenta", accountFormData{Form: form, Roles: authz.Catalog(), Errors: formErrors})
		return
	}

	body := fmt.Sprintf("Hola %s,\n\nSe ha creado tu cuenta en AulaNet.\n\nTu contraseña temporal es:\n\n    %s\n\nInicia sesión y cámbiala lo antes posible.\n", form.Username, plain)
	if mailErr := h.mail.EnqueueMail(r.Context(), form.Email, "Bienvenido a AulaNet", body); mailErr != nil {
		h.logger.Warn("enqueue welcome mail", slog.Int64("account_id", id), slog.Any("error", mailErr))
	}
	h.redirectWithFlash(w, r, "success", "Cuenta creada; la contraseña temporal fue enviada por correo.")
}

func (h *Handler) handleReplaceRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := h.service.ReplaceRoles(r.Context(), h.actorID(r), id, r.PostForm["roles"])
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.redirectWithFlash(w, r, "danger", "La cuenta no existe.")
	case errors.Is(err, shared.ErrValidation):
		h.redirectWithFlash(w, r, "danger", "Alguno de los roles seleccionados no existe.")
	case err != nil:
		h.logger.Error("replace roles", slog.Int64("account_id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudieron actualizar los roles.")
	default:
		h.redirectWithFlash(w, r, "success", "Roles actualizados.")
	}
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	active := r.PostFormValue("active") == "1"
	err := h.service.SetActive(r.Context(), h.actorID(r), id, active)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.redirectWithFlash(w, r, "danger", "La cuenta no existe.")
	case err != nil:
		h.logger.Error("set account active", slog.Int64("account_id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudo cambiar el estado de la cuenta.")
	case active:
		h.redirectWithFlash(w, r, "success", "Cuenta reactivada.")
	default:
		h.redirectWithFlash(w, r, "success", "Cuenta bloqueada.")
	}
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	plain, acct, err := h.service.ResetPassword(r.Context(), h.actorID(r), id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.redirectWithFlash(w, r, "danger", "La cuenta no existe.")
		return
	case err != nil:
		h.logger.Error("reset account password", slog.Int64("account_id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudo restablecer la contraseña.")
		return
	}
	body := fmt.Sprintf("Hola %s,\n\nUn administrador restableció tu contraseña.\n\nTu nueva contraseña temporal es:\n\n    %s\n\nInicia sesión y cámbiala lo antes posible.\n", acct.Username, plain)
	if mailErr := h.mail.EnqueueMail(r.Context(), acct.Email, "Nueva contraseña temporal", body); mailErr != nil {
		h.logger.Warn("enqueue reset mail", slog.Int64("account_id", id), slog.Any("error", mailErr))
	}
	h.redirectWithFlash(w, r, "success", "Contraseña restablecida; la temporal fue enviada por correo.")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	err := h.service.Delete(r.Context(), h.actorID(r), id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.redirectWithFlash(w, r, "danger", "La cuenta no existe.")
	case err != nil:
		h.logger.Error("delete account", slog.Int64("account_id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, "danger", "No se pudo dar de baja la cuenta.")
	default:
		h.redirectWithFlash(w, r, "success", "Cuenta dada de baja.")
	}
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func (h *Handler) actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id := sess.Identity()
	if id == nil {
		return 0
	}
	return id.UserID
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, authz.LandingOrDefault(authz.RoleAdministrator), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var identity *shared.Identity
	if sess != nil {
		flash = sess.PopFlash()
		identity = sess.Identity()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		Identity:    identity,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render page", slog.String("page", page), slog.Any("error", err))
	}
}

// ListAccountsForTest exposes the list handler for tests.
func (h *Handler) ListAccountsForTest(w http.ResponseWriter, r *http.Request) {
	h.listAccounts(w, r)
}

// HandleCreateForTest exposes the create handler for tests.
func (h *Handler) HandleCreateForTest(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r)
}
