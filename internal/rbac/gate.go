package rbac

// Requirement is what a route or menu entry demands of the current user.
type Requirement struct {
	Roles       []Role
	Permissions []Permission
}

// IsAuthenticated reports whether a user is logged in.
func IsAuthenticated(p Principal) bool {
	return p != nil && p.IsAuthenticated()
}

// RoleAllowed is true when allowed is empty or contains the principal's role.
// An unauthenticated principal has no role and fails any non-empty list.
func RoleAllowed(p Principal, allowed ...Role) bool {
	if len(allowed) == 0 {
		return true
	}
	if !IsAuthenticated(p) {
		return false
	}
	role := p.CurrentRole()
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// PermissionAllowed is true when required is empty or the principal holds every
// listed permission.
func PermissionAllowed(p Principal, required ...Permission) bool {
	if len(required) == 0 {
		return true
	}
	if !IsAuthenticated(p) {
		return false
	}
	return p.Permissions().HasAll(required...)
}

// Allowed combines the role and permission checks of a requirement.
func Allowed(p Principal, req Requirement) bool {
	return RoleAllowed(p, req.Roles...) && PermissionAllowed(p, req.Permissions...)
}

// Decision is the outcome of evaluating a route requirement.
type Decision int

// Route guard outcomes, in evaluation order.
const (
	DecisionLoading Decision = iota
	DecisionUnauthenticated
	DecisionForbidden
	DecisionAllowed
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionUnauthenticated:
		return "unauthenticated"
	case DecisionForbidden:
		return "forbidden"
	case DecisionAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Decide evaluates loading, authentication, role and permission in that order and
// stops at the first failure.
func Decide(s Subject, req Requirement) Decision {
	if s != nil && s.Loading() {
		return DecisionLoading
	}
	if !IsAuthenticated(s) {
		return DecisionUnauthenticated
	}
	if !RoleAllowed(s, req.Roles...) {
		return DecisionForbidden
	}
	if !PermissionAllowed(s, req.Permissions...) {
		return DecisionForbidden
	}
	return DecisionAllowed
}
