package model

const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Caller identifies who is invoking a persistence operation. It is passed
// explicitly on every call so scoping does not depend on ambient session
// state.
type Caller struct {
	ID   string
	Role string
}

// IsAdmin reports whether the caller may operate on records owned by others.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
