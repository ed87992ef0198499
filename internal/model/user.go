package model

import "time"

// Role values stored on User.Role.
const (
	RoleUser   = "user"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User represents an authenticated reader or author of the blog.
type User struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`
	Email               string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash        string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role                string     `json:"role" gorm:"size:20;not null;default:'user'"`
	MembershipExpiresAt *time.Time `json:"membership_expires_at"`
	CreatedAt           time.Time  `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleMember, RoleAdmin:
		return true
	}
	return false
}
