package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/observability"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/view"
)

// Handlers answer the same message whether or not the pieces of a login or
// reset request were valid, so responses reveal nothing about which part
// failed or which accounts exist.
const (
	msgBadCredentials = "Credenciales incorrectas."
	msgResetNotice    = "Si el correo existe en el sistema, se enviará una nueva contraseña temporal."
)

// MailEnqueuer queues notification email for asynchronous delivery.
type MailEnqueuer interface {
	EnqueueMail(ctx context.Context, to, subject, body string) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	mail      MailEnqueuer
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, mail MailEnqueuer, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		sessions:  sessions,
		csrf:      csrf,
		mail:      mail,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. Credential
// submissions carry a tighter per-IP budget than the global limit.
func (h *Handler) MountRoutes(r chi.Router) {
	loginLimit := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	r.Get("/login", h.showLogin)
	r.With(loginLimit).Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/forgot-password", h.showForgotPassword)
	r.With(loginLimit).Post("/forgot-password", h.handleForgotPassword)
}

type loginForm struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
	Role       string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Roles  []string
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if id := sess.Identity(); id != nil {
			http.Redirect(w, r, authz.LandingOrDefault(id.ActiveRole), http.StatusSeeOther)
			return
		}
	}
	h.renderLogin(w, r, loginPageData{Roles: authz.Catalog()}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Identifier: strings.TrimSpace(r.PostFormValue("identifier")),
		Password:   r.PostFormValue("password"),
		Role:       strings.TrimSpace(r.PostFormValue("role")),
	}
	errors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		errors["general"] = "Debes llenar usuario/correo, contraseña y rol."
	}

	if len(errors) == 0 {
		acct, err := h.service.Authenticate(r.Context(), form.Identifier, form.Password)
		if err == nil {
			err = h.service.StartSession(sess, acct, form.Role, h.sessions.TTL())
		}
		if err != nil {
			// One message for unknown identifier, wrong password, inactive
			// account and ungranted role alike.
			errors["general"] = msgBadCredentials
			h.service.RecordAttempt(r.Context(), LoginAttempt{
				Identifier: form.Identifier,
				IP:         r.RemoteAddr,
				UserAgent:  r.UserAgent(),
			})
			h.metrics.RecordLogin("failure")
		} else {
			h.service.RecordAttempt(r.Context(), LoginAttempt{
				Identifier: form.Identifier,
				IP:         r.RemoteAddr,
				UserAgent:  r.UserAgent(),
				Success:    true,
			})
			h.metrics.RecordLogin("success")
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Inicio de sesión exitoso."})
			http.Redirect(w, r, authz.LandingOrDefault(form.Role), http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	w.WriteHeader(http.StatusBadRequest)
	h.renderLoginBody(w, r, loginPageData{Form: form, Roles: authz.Catalog(), Errors: errors})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		// Idempotent: destroying an anonymous session is a no-op.
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type forgotPasswordForm struct {
	Email string `validate:"required,email"`
}

type forgotPasswordPageData struct {
	Form   forgotPasswordForm
	Errors map[string]string
}

func (h *Handler) showForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.renderForgot(w, r, forgotPasswordPageData{}, http.StatusOK)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := forgotPasswordForm{Email: strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))}
	if err := h.validator.Struct(form); err != nil {
		h.renderForgot(w, r, forgotPasswordPageData{Form: form, Errors: map[string]string{"email": "Debes ingresar un correo electrónico válido."}}, http.StatusBadRequest)
		return
	}

	plain, acct, err := h.service.ResetPassword(r.Context(), form.Email)
	switch {
	case err == nil:
		// The reset is committed; a delivery failure is reported in logs
		// only and never rolls the commit back.
		body := resetMailBody(acct.Username, plain)
		if mailErr := h.mail.EnqueueMail(r.Context(), acct.Email, "Nueva contraseña temporal", body); mailErr != nil {
			h.logger.Warn("enqueue reset mail", slog.Any("error", mailErr))
		}
	case errors.Is(err, shared.ErrNotFound):
		// Fall through to the generic notice.
	default:
		h.logger.Error("reset password", slog.Any("error", err))
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "danger", Message: "No se pudo procesar la solicitud, intenta más tarde."})
		}
		h.renderForgot(w, r, forgotPasswordPageData{Form: form}, http.StatusOK)
		return
	}

	// Identical notice whether or not the email exists.
	if sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "info", Message: msgResetNotice})
	}
	h.renderForgot(w, r, forgotPasswordPageData{}, http.StatusOK)
}

func resetMailBody(username, password string) string {
	return fmt.Sprintf("Hola %s,\n\nHemos recibido una solicitud para restablecer tu contraseña.\n\nTu nueva contraseña temporal es:\n\n    %s\n\nTe recomendamos iniciar sesión y cambiarla lo antes posible.\nSi tú no solicitaste este cambio, contacta al administrador.\n", username, password)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	h.renderLoginBody(w, r, data)
}

func (h *Handler) renderLoginBody(w http.ResponseWriter, r *http.Request, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Iniciar sesión",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func (h *Handler) renderForgot(w http.ResponseWriter, r *http.Request, data forgotPasswordPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Recuperar contraseña",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/forgot_password.html", viewData); err != nil {
		h.logger.Error("render forgot password", slog.Any("error", err))
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}

// HandleForgotPasswordForTest exposes the POST handler for tests.
func (h *Handler) HandleForgotPasswordForTest(w http.ResponseWriter, r *http.Request) {
	h.handleForgotPassword(w, r)
}
