package entity

import (
	"fmt"
	"strings"
)

// Status is the verification state of a user. The zero value is not a valid status.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusApproved
	StatusRejected
)

// String returns the persisted form of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected:
		return true
	case StatusPending:
		return false
	default:
		return false
	}
}

// CanTransition reports whether s -> to is a legal workflow transition.
// Only pending -> approved and pending -> rejected are legal.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved, StatusRejected:
		return false
	default:
		return false
	}
}

// ParseStatus parses the persisted form of a status.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "rejected":
		return StatusRejected, nil
	default:
		return 0, fmt.Errorf("unknown user status %q", raw)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// User is a chat-platform user known to the bot.
// A record is created on the first bootstrap command and never deleted.
type User struct {
	ID       int64
	Username string // empty when the user has no handle
	FullName string
	Status   Status
}

// UserPatch carries the fields of a merge-on-write upsert. Nil fields are left untouched.
type UserPatch struct {
	Username *string
	FullName *string
	Status   *Status
}

// PatchFromActor builds a full patch for the given actor and status.
func PatchFromActor(a Actor, status Status) UserPatch {
	username, fullName := a.Username, a.FullName
	return UserPatch{Username: &username, FullName: &fullName, Status: &status}
}

// Apply merges the patch into u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
}
