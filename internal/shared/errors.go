package shared

import "errors"

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates a failed login. Callers must not
	// reveal whether the identifier, the password or the account state
	// caused the failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRoleNotGranted indicates the role chosen at login is not among
	// the account's assigned roles.
	ErrRoleNotGranted = errors.New("role not granted")
	// ErrNotLinked indicates an account has no student or staff record.
	ErrNotLinked = errors.New("account not linked to a domain record")
	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
