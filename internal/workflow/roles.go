package workflow

// Role names an actor's function within a project organisation.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleOwner          Role = "OWNER"
	RoleDirector       Role = "DIRECTOR"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleManager        Role = "MANAGER"
	RoleAccountant     Role = "ACCOUNTANT"
	RoleSupervisor     Role = "SUPERVISOR"
	RoleEngineer       Role = "ENGINEER"
)

// rolePermissions maps a work item status to the roles that may act on an
// item in that status. Statuses without an entry fall back to defaultRoles.
// This table is advisory: the engine consults it before applying a decision,
// but it performs no enforcement on reads.
var rolePermissions = map[Status][]Role{
	StatusSubmitted:  {RoleManager, RoleProjectManager, RoleDirector, RoleOwner},
	StatusNeedInfo:   {RoleManager, RoleProjectManager, RoleDirector, RoleOwner},
	StatusApprovedL1: {RoleDirector, RoleOwner},
	StatusApprovedL2: {RoleDirector, RoleOwner},
	StatusDelivered:  {RoleAccountant, RoleOwner, RoleAdmin},
	StatusInvoiced:   {RoleAccountant, RoleOwner, RoleAdmin},
	StatusClosed:     {RoleAccountant, RoleOwner, RoleAdmin},
}

var defaultRoles = []Role{RoleAdmin, RoleOwner}

// RolesFor returns the roles permitted to act on an item in the given status.
func RolesFor(s Status) []Role {
	roles, ok := rolePermissions[s]
	if !ok {
		roles = defaultRoles
	}
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// RoleCanAct reports whether role may act on an item in the given status.
// OWNER and ADMIN hold a universal override.
func RoleCanAct(role Role, s Status) bool {
	if role.IsOverride() {
		return true
	}
	for _, r := range RolesFor(s) {
		if r == role {
			return true
		}
	}
	return false
}

// IsOverride reports whether the role bypasses status-level gating.
func (r Role) IsOverride() bool {
	return r == RoleOwner || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
