package users

import (
	"fmt"

	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/platform/httpx"
)

// ErrRoleEscalation indicates an attempt to hand out authority the actor
// does not hold. It wraps httpx.ErrForbidden so transports map it to 403.
var ErrRoleEscalation = fmt.Errorf("%w: role escalation", httpx.ErrForbidden)

func scopeError(decision authz.Decision) error {
	return fmt.Errorf("%w: %s", httpx.ErrForbidden, decision.Reason)
}
