package accounts

import "time"

// ManagedAccount is an account row as the administration screens see it.
type ManagedAccount struct {
	ID        int64
	Username  string
	Email     string
	IsActive  bool
	Roles     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
