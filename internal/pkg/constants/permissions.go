package constants

const (
	ViewPortfolio = "view_portfolio"
	Trade         = "trade"
	ViewMarket    = "view_market"
	ManageUsers   = "manage_users"
	AssignRole    = "assign_role"
	DeleteUser    = "delete_user"
)

// PermissionRoles maps each permission to the role tags allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewPortfolio: {RoleUser, RoleAdmin},
	Trade:         {RoleUser},
	ViewMarket:    {RoleUser, RoleAdmin},
	ManageUsers:   {RoleAdmin},
	AssignRole:    {RoleAdmin},
	DeleteUser:    {RoleAdmin},
}

// Allowed returns true if any of roles may perform permission.
func Allowed(permission string, roles []string) bool {
	allowed, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, a := range allowed {
		for _, r := range roles {
			if r == a {
				return true
			}
		}
	}
	return false
}
