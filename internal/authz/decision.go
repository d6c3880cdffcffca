package authz

// Reason explains why an authorization check denied access.
type Reason string

// Denial reasons.
const (
	ReasonInactivePrincipal      Reason = "inactive_principal"
	ReasonCompanyScopeViolation  Reason = "company_scope_violation"
	ReasonInsufficientPermission Reason = "insufficient_permission"
	ReasonInsufficientRole       Reason = "insufficient_role"
	ReasonUnknownRole            Reason = "unknown_role"
)

// Decision is the explicit result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Denied builds a negative decision with the given reason.
func Denied(reason Reason) Decision {
	return Decision{Reason: reason}
}

type requirementKind int

const (
	requirePermission requirementKind = iota
	requireRoleFloor
)

// Requirement expresses what a check demands: a permission token or a
// minimum role rank. Handlers compose these explicitly instead of chaining
// opaque middleware continuations.
type Requirement struct {
	kind  requirementKind
	perm  Permission
	floor Role
}

// NeedPermission requires the principal to hold the permission token.
func NeedPermission(p Permission) Requirement {
	return Requirement{kind: requirePermission, perm: p}
}

// NeedRole requires the principal's role to rank at or above floor.
func NeedRole(floor Role) Requirement {
	return Requirement{kind: requireRoleFloor, floor: floor}
}

// String renders the requirement for logs and audit metadata.
func (q Requirement) String() string {
	if q.kind == requireRoleFloor {
		return "role>=" + string(q.floor)
	}
	return string(q.perm)
}

// Authorize decides whether the principal may perform the required action
// against the target company scope. A zero targetCompanyID means the
// resource is not company-scoped. Super admins bypass the scope check but
// still need the required permission or rank.
func (r *Registry) Authorize(p Principal, req Requirement, targetCompanyID int64) Decision {
	if !p.IsActive {
		return Denied(ReasonInactivePrincipal)
	}

	if p.Role != RoleSuperAdmin {
		if targetCompanyID != 0 && targetCompanyID != p.CompanyID {
			return Denied(ReasonCompanyScopeViolation)
		}
	}

	switch req.kind {
	case requireRoleFloor:
		if _, ok := r.ranks[p.Role]; !ok {
			return Denied(ReasonUnknownRole)
		}
		if !r.IsAtLeast(p.Role, req.floor) {
			return Denied(ReasonInsufficientRole)
		}
	default:
		effective, err := r.PermissionsFor(p)
		if err != nil {
			return Denied(ReasonUnknownRole)
		}
		if !effective.Has(req.perm) {
			return Denied(ReasonInsufficientPermission)
		}
	}

	return Allow
}
