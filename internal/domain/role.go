package domain

// Role is one of the two fixed slots a room holds.
type Role string

const (
	RoleOperator Role = "operator"
	RoleClient   Role = "client"
)

// ParseRole maps a route segment to a Role. Anything except the two known
// roles is rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOperator, RoleClient:
		return Role(s), true
	}
	return "", false
}

// Opposite returns the peer role within the same room.
func (r Role) Opposite() Role {
	if r == RoleOperator {
		return RoleClient
	}
	return RoleOperator
}

func (r Role) String() string { return string(r) }
