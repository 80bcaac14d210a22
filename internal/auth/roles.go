package auth

import "strings"

// Role is the closed set of roles a caller can act as.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// NormalizeRole maps an arbitrary role claim onto the known role set.
// Matching is case-insensitive and unrecognised values fall back to USER,
// so a token carrying "superuser" never grants more than the base role.
func NormalizeRole(value string) Role {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleModerator):
		return RoleModerator
	default:
		return RoleUser
	}
}

func (r Role) String() string {
	return string(r)
}
