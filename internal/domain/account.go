package domain

import "time"

// AccountStatus represents lifecycle states for a login account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Account is a client, provider or staff login.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Viewer projects the account onto the engine's caller identity.
func (a Account) Viewer() Viewer {
	return Viewer{ID: a.ID, Role: a.Role}
}
