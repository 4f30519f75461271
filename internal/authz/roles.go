// Package authz implements the role catalog, the role landing map and the
// route guards applied to every protected handler.
package authz

// Role names form a small fixed catalog. They are reference data: the roles
// table is seeded with exactly these values and never mutated at runtime.
const (
	RoleAdministrator = "Administrador"
	RoleCoordinator   = "Coordinador"
	RoleInstructor    = "Docente"
	RoleLibrarian     = "Bibliotecario"
	RoleStudent       = "Estudiante"
)

// Catalog returns all known role names.
func Catalog() []string {
	return []string{
		RoleAdministrator,
		RoleCoordinator,
		RoleInstructor,
		RoleLibrarian,
		RoleStudent,
	}
}

// Known reports whether name belongs to the role catalog.
func Known(name string) bool {
	for _, role := range Catalog() {
		if role == name {
			return true
		}
	}
	return false
}
