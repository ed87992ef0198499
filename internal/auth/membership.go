package auth

import (
	"time"

	"maiblog/internal/model"
)

// MembershipWindow is how long an upgrade keeps a membership active.
const MembershipWindow = 30 * 24 * time.Hour

// IsMembershipActive reports whether user may read member-tier posts at now.
// Admins always qualify; a member with no expiry never lapses.
func IsMembershipActive(user *model.User, now time.Time) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case model.RoleAdmin:
		return true
	case model.RoleMember:
		if user.MembershipExpiresAt == nil {
			return true
		}
		return user.MembershipExpiresAt.After(now)
	default:
		return false
	}
}
