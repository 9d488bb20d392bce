package entity

// Role is how the bot treats an actor.
// Administrators bypass verification; everyone else is a regular user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Label is the short tag printed in the inbound event log.
func (r Role) Label() string {
	if r == RoleAdmin {
		return "ADMIN"
	}
	return "USER"
}
