package domain

// Account describes the organization account as seen during access
// verification, before any enumeration begins.
type Account struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
	Plan  string `json:"plan,omitempty"`
}
