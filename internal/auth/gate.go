package auth

import (
	"time"

	apperrors "maiblog/internal/errors"
	"maiblog/internal/model"
)

// Decision is the outcome of a visibility check. Reason is set only when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  error
}

// Allow is the permitting decision.
var Allow = Decision{Allowed: true}

// Deny builds a rejecting decision.
func Deny(reason error) Decision {
	return Decision{Reason: reason}
}

// Gate decides whether a caller may read a post's full content.
type Gate struct {
	now func() time.Time
}

// NewGate creates a Gate using now as its clock. A nil now means time.Now.
func NewGate(now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{now: now}
}

// Evaluate applies the visibility table. Unknown tiers are treated as member-only.
func (g *Gate) Evaluate(visibility string, caller *model.User) Decision {
	if visibility == model.VisibilityPublic {
		return Allow
	}
	if caller == nil {
		return Deny(apperrors.ErrUnauthenticated)
	}
	if visibility == model.VisibilityRegistered {
		return Allow
	}
	if IsMembershipActive(caller, g.now().UTC()) {
		return Allow
	}
	return Deny(apperrors.ErrMembershipRequired)
}
