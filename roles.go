package sokoni

// Role is an account's role tag. The storage layer keeps it as an open
// string so new tags can appear without a schema change; the permission
// matrix treats anything outside the known set as deniable.
type Role string

const (
	// RolePublic is the default buyer role, auto-approved at registration.
	RolePublic Role = "public"
	// RoleCreator sells creative work; requires admin approval.
	RoleCreator Role = "creator"
	// RoleITSupport handles support duties; requires admin approval.
	RoleITSupport Role = "it_support"
	// RoleAdmin manages creators and IT support; requires CEO approval.
	RoleAdmin Role = "admin"
	// RoleServiceSeller lists services; approvable by admin or CEO.
	RoleServiceSeller Role = "service_seller"
	// RoleCEO is the bootstrap role, auto-approved at registration.
	RoleCEO Role = "ceo"
)

// KnownRoles returns the predefined roles in hierarchical order.
func KnownRoles() []Role {
	return []Role{
		RolePublic,
		RoleCreator,
		RoleITSupport,
		RoleServiceSeller,
		RoleAdmin,
		RoleCEO,
	}
}

// Known checks if the role is one of the predefined tags.
func (r Role) Known() bool {
	switch r {
	case RolePublic, RoleCreator, RoleITSupport, RoleServiceSeller, RoleAdmin, RoleCEO:
		return true
	default:
		return false
	}
}

// AutoApproved reports whether accounts registering with this role skip the
// approval workflow. CEO self-approval is the deliberate bootstrap path.
func (r Role) AutoApproved() bool {
	return r == RolePublic || r == RoleCEO
}

// Privileged reports whether the role sits behind the approval gate.
func (r Role) Privileged() bool {
	return !r.AutoApproved()
}

// DecidableRoles is the approval decision matrix: the requested roles a
// decider of the given role may rule on. Everyone else gets an empty set.
func DecidableRoles(decider Role) []Role {
	switch decider {
	case RoleCEO:
		return []Role{RoleAdmin, RoleServiceSeller}
	case RoleAdmin:
		return []Role{RoleCreator, RoleITSupport, RoleServiceSeller}
	default:
		return nil
	}
}

// CanDecide checks the matrix for a single decider/requested pair. It is
// evaluated against the request's requested role only, never against the
// requester's current role.
func CanDecide(decider, requested Role) bool {
	for _, role := range DecidableRoles(decider) {
		if role == requested {
			return true
		}
	}
	return false
}

// AdminManagedRoles is the target scope an admin may act on when managing
// other accounts.
func AdminManagedRoles() []Role {
	return []Role{RoleCreator, RoleITSupport}
}

// AdminManaged reports whether an admin may act on accounts of this role.
func (r Role) AdminManaged() bool {
	return r == RoleCreator || r == RoleITSupport
}

// IsAtLeast checks if the role meets a minimum hierarchy level. Unknown
// roles never satisfy any minimum.
func (r Role) IsAtLeast(min Role) bool {
	hierarchy := map[Role]int{
		RolePublic:        0,
		RoleCreator:       1,
		RoleITSupport:     1,
		RoleServiceSeller: 1,
		RoleAdmin:         2,
		RoleCEO:           3,
	}

	current, ok := hierarchy[r]
	if !ok {
		return false
	}

	required, ok := hierarchy[min]
	if !ok {
		return false
	}

	return current >= required
}

// ParseRole safely parses a string into a Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	return role, role.Known()
}
