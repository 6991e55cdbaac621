package domain

// TeamPrivacy represents a team's visibility setting
type TeamPrivacy string

const (
	TeamPrivacySecret TeamPrivacy = "secret"
	TeamPrivacyClosed TeamPrivacy = "closed"
)

// TeamRole represents a member's role within a team
type TeamRole string

const (
	TeamRoleMember     TeamRole = "member"
	TeamRoleMaintainer TeamRole = "maintainer"
)

// Team represents a GitHub organization team.
// ParentID references the parent team by id when the team is nested; it is
// a weak reference, the parent may or may not be present in the same snapshot.
type Team struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Privacy     TeamPrivacy `json:"privacy"`
	ParentID    *int64      `json:"parent_id,omitempty"`
}

// TeamMembership is a (team, member) pair with the member's team role.
// Both references must resolve to entities present in the snapshot.
type TeamMembership struct {
	TeamID   int64    `json:"team_id"`
	TeamSlug string   `json:"team_slug"`
	Login    string   `json:"login"`
	Role     TeamRole `json:"role"`
}

// TeamRepository is a (team, repository) pair with the team's permission level.
type TeamRepository struct {
	TeamID       int64  `json:"team_id"`
	TeamSlug     string `json:"team_slug"`
	RepoFullName string `json:"repo_full_name"`
	Permission   string `json:"permission"`
}
