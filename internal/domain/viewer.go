package domain

// Role identifies which side of the marketplace a caller acts for.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleStaff    Role = "staff"
)

// Viewer is the caller an appointment is evaluated for.
type Viewer struct {
	ID   string
	Role Role
}
