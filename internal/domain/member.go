package domain

// OrgRole represents a member's role within the organization
type OrgRole string

const (
	OrgRoleMember OrgRole = "member"
	OrgRoleAdmin  OrgRole = "admin"
)

// Member represents a GitHub organization member.
// Members are created during member enumeration and never modified afterwards.
type Member struct {
	Login            string  `json:"login"`
	ID               int64   `json:"id"`
	Email            string  `json:"email,omitempty"`
	Role             OrgRole `json:"role"`
	TwoFactorEnabled bool    `json:"two_factor_enabled"`
}
