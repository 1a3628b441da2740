package enums

import "fmt"

// AppRole maps to the app_role enum in Postgres.
type AppRole string

const (
	AppRoleAdmin    AppRole = "admin"
	AppRoleEngineer AppRole = "engineer"
	AppRoleClient   AppRole = "client"
	AppRoleVendor   AppRole = "vendor"
)

var validAppRoles = []AppRole{
	AppRoleAdmin,
	AppRoleEngineer,
	AppRoleClient,
	AppRoleVendor,
}

// String implements fmt.Stringer.
func (r AppRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AppRole.
func (r AppRole) IsValid() bool {
	for _, candidate := range validAppRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAppRole converts raw input into an AppRole.
func ParseAppRole(value string) (AppRole, error) {
	for _, candidate := range validAppRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid app role %q", value)
}
