package auth

import "time"

// Account is the authenticated principal handed back by the verifier.
// It deliberately carries no password hash; the hash never leaves the
// repository/service boundary.
type Account struct {
	ID       int64
	Username string
	Email    string
	IsActive bool
	Roles    []string
}

// HasRole reports whether the account holds the given role.
func (a *Account) HasRole(role string) bool {
	for _, granted := range a.Roles {
		if granted == role {
			return true
		}
	}
	return false
}

// Credential pairs an account with its stored password hash. Only the
// repository and the verifier see this type.
type Credential struct {
	Account
	PasswordHash string
}

// LoginAttempt is the audit record for one login attempt, success or not.
type LoginAttempt struct {
	Identifier string
	IP         string
	UserAgent  string
	Success    bool
	At         time.Time
}
