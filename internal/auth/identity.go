package auth

// Role is resolved by the external identity provider; the engines trust
// it and do not re-verify.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleExpo     Role = "expo"
	RoleAdmin    Role = "admin"
)

// Identity is the resolved caller: subject, display name, and role.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// CanActAs reports whether the identity's role grants one of the wanted
// roles. Admin passes every gate.
func (id Identity) CanActAs(wanted ...Role) bool {
	if id.Role == RoleAdmin {
		return true
	}
	for _, role := range wanted {
		if id.Role == role {
			return true
		}
	}
	return false
}
