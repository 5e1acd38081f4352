package enums

import (
	"fmt"
	"strings"
)

// MemberRole is the organization role carried in access tokens.
type MemberRole string

const (
	MemberRoleMember     MemberRole = "member"
	MemberRoleAdmin      MemberRole = "admin"
	MemberRoleSuperAdmin MemberRole = "super_admin"
)

var validMemberRoles = []MemberRole{
	MemberRoleMember,
	MemberRoleAdmin,
	MemberRoleSuperAdmin,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role may act on any member's payments.
func (m MemberRole) IsAdmin() bool {
	return m == MemberRoleAdmin || m == MemberRoleSuperAdmin
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validMemberRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
