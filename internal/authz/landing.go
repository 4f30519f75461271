package authz

import "fmt"

// DefaultLanding is where a session goes when no role-specific landing page
// applies.
const DefaultLanding = "/dashboard"

// landingPages maps each catalog role to its home route. Immutable; checked
// against the catalog at startup.
var landingPages = map[string]string{
	RoleAdministrator: "/admin",
	RoleCoordinator:   "/coordinacion",
	RoleInstructor:    "/docente",
	RoleLibrarian:     "/biblioteca",
	RoleStudent:       "/estudiante",
}

// LandingPath returns the landing route for a role. The second return value
// is false for any role outside the catalog; callers fall back to
// DefaultLanding rather than failing.
func LandingPath(role string) (string, bool) {
	path, ok := landingPages[role]
	return path, ok
}

// LandingOrDefault resolves the landing route, falling back to
// DefaultLanding for unknown roles.
func LandingOrDefault(role string) string {
	if path, ok := LandingPath(role); ok {
		return path
	}
	return DefaultLanding
}

// ValidateLandingPages verifies the landing map covers the catalog exactly.
// Called once at startup so a drifting map fails fast instead of 404ing
// users after login.
func ValidateLandingPages() error {
	if len(landingPages) != len(Catalog()) {
		return fmt.Errorf("authz: landing map has %d entries, catalog has %d", len(landingPages), len(Catalog()))
	}
	for _, role := range Catalog() {
		if _, ok := landingPages[role]; !ok {
			return fmt.Errorf("authz: no landing page for role %q", role)
		}
	}
	return nil
}
