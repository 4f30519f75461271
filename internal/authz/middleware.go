package authz

import (
	"log/slog"
	"net/http"

	"github.com/aulanet/aulanet/internal/shared"
)

// Middleware wires session and role guards for HTTP handlers.
// RequireSession must run before RequireRole on any protected route.
type Middleware struct {
	Logger *slog.Logger
}

// RequireSession rejects anonymous requests with a redirect to the login
// page and a user-visible notice.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.Identity() == nil {
			if sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "Debes iniciar sesión primero."})
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects sessions whose active role is outside the allowed set,
// redirecting to the active role's own landing page. Only the single role
// chosen at login counts; other granted roles on the account never do.
// Switching roles requires a new login.
func (m Middleware) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.Identity() == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			identity := sess.Identity()
			if _, ok := allowedSet[identity.ActiveRole]; !ok {
				if m.Logger != nil {
					m.Logger.Warn("role denied",
						slog.String("path", r.URL.Path),
						slog.String("active_role", identity.ActiveRole))
				}
				sess.AddFlash(shared.FlashMessage{Kind: "danger", Message: "No tienes permiso para acceder a esa página."})
				http.Redirect(w, r, LandingOrDefault(identity.ActiveRole), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
