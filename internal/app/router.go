package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aulanet/aulanet/internal/accounts"
	"github.com/aulanet/aulanet/internal/auth"
	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/library"
	"github.com/aulanet/aulanet/internal/observability"
	"github.com/aulanet/aulanet/internal/programs"
	"github.com/aulanet/aulanet/internal/schedule"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/students"
	"github.com/aulanet/aulanet/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler     *auth.Handler
	AccountsHandler *accounts.Handler
	ProgramsHandler *programs.Handler
	ScheduleHandler *schedule.Handler
	LibraryHandler  *library.Handler
	StudentsHandler *students.Handler

	Guard authz.Middleware
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.Identity() == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	// Dashboard only dispatches: each active role has exactly one home.
	r.Group(func(r chi.Router) {
		r.Use(params.Guard.RequireSession)
		r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			id := sess.Identity()
			if id == nil {
				// Absolute expiry can land between the guard and here.
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			http.Redirect(w, r, authz.LandingOrDefault(id.ActiveRole), http.StatusSeeOther)
		})
	})

	params.AuthHandler.MountRoutes(r)

	r.Route(authz.LandingOrDefault(authz.RoleAdministrator), func(r chi.Router) {
		r.Use(params.Guard.RequireSession)
		r.Use(params.Guard.RequireRole(authz.RoleAdministrator))
		params.AccountsHandler.MountRoutes(r)
	})
	r.Route(authz.LandingOrDefault(authz.RoleCoordinator), func(r chi.Router) {
		r.Use(params.Guard.RequireSession)
		r.Use(params.Guard.RequireRole(authz.RoleCoordinator))
		params.ProgramsHandler.MountRoutes(r)
	})
	r.Route(authz.LandingOrDefault(authz.RoleInstructor), func(r chi.Router) {
		r.Use(params.Guard.RequireSession)
		r.Use(params.Guard.RequireRole(authz.RoleInstructor))
		params.ScheduleHandler.MountRoutes(r)
	})
	r.Route(authz.LandingOrDefault(authz.RoleLibrarian), func(r chi.Router) {
		r.Use(params.Guard.RequireSession)
		r.Use(params.Guard.RequireRole(authz.RoleLibrarian))
		params.LibraryHandler.MountRoutes(r)
	})
	r.Route(authz.LandingOrDefault(authz.RoleStudent), func(r chi.Router) {
		r.Use(params.Guard.RequireSession)
		r.Use(params.Guard.RequireRole(authz.RoleStudent))
		params.StudentsHandler.MountRoutes(r)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers so
// browsers keep assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
