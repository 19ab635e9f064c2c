package state

import "fmt"

// Role is the closed set of principal roles an authenticated
// connection can carry. Unknown roles are rejected at the door, never
// defaulted.
type Role string

const (
	RoleStandard  Role = "standard"
	RoleBusiness  Role = "business"
	RoleInstitute Role = "institute"
	RoleOperator  Role = "operator"
)

// ParseRole maps a raw role string (including the legacy names used by
// the external session store) onto the closed set.
func ParseRole(raw string) (Role, error) {
	switch raw {
	case "", "user", string(RoleStandard):
		// The session store omits the role for ordinary accounts.
		return RoleStandard, nil
	case string(RoleBusiness):
		return RoleBusiness, nil
	case string(RoleInstitute):
		return RoleInstitute, nil
	case "admin", string(RoleOperator):
		return RoleOperator, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Capability is a bitmap of privileged operations. Handlers consult it
// once per operation instead of re-deriving role checks ad hoc.
type Capability uint64

const (
	CapMonitor   Capability = 1 << iota // read operator monitoring streams
	CapBroadcast                        // push system-wide updates
)

func (c Capability) Has(flag Capability) bool {
	return c&flag == flag
}

// Capabilities returns the capability set granted to a role. Computed
// once at authentication time and carried on the Identity.
func (r Role) Capabilities() Capability {
	switch r {
	case RoleOperator:
		return CapMonitor | CapBroadcast
	default:
		return 0
	}
}
