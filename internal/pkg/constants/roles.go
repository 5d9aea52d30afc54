package constants

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRoles is the set of role tags a user may carry.
var ValidRoles = []string{RoleUser, RoleAdmin}

// IsValidRole returns true if role is one of the known tags.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
