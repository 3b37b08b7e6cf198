package domain

import "time"

// UserRole mirrors the actor kinds for directory records. Identity and
// credentials live outside this service; the directory only answers
// "does this principal exist and what can they do".
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAgent UserRole = "AGENT"
	UserRoleAdmin UserRole = "ADMIN"
)

// User is a principal known to the ticket core.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      UserRole
	CreatedAt time.Time
}

// IsStaff reports whether the user may act on tickets they do not own.
func (u User) IsStaff() bool {
	return u.Role == UserRoleAgent || u.Role == UserRoleAdmin
}
