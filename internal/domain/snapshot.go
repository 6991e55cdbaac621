package domain

import "time"

// FetchErrorKind classifies why a team's detail fetch failed
type FetchErrorKind string

const (
	FetchErrorNetwork     FetchErrorKind = "network"
	FetchErrorPermission  FetchErrorKind = "permission"
	FetchErrorNotFound    FetchErrorKind = "not_found"
	FetchErrorRateLimited FetchErrorKind = "rate_limited"
)

// FetchError records a per-team failure. It is recorded in the snapshot
// and never propagated past the worker that produced it.
type FetchError struct {
	TeamID   int64          `json:"team_id"`
	TeamSlug string         `json:"team_slug"`
	Kind     FetchErrorKind `json:"kind"`
	Message  string         `json:"message"`
}

// Summary holds the snapshot's aggregate counters
type Summary struct {
	TotalMembers      int `json:"total_members"`
	TotalTeams        int `json:"total_teams"`
	TotalMemberships  int `json:"total_team_memberships"`
	TotalTeamRepos    int `json:"total_team_repositories"`
	MembersWithTeams  int `json:"members_with_teams"`
	MembersWithNoTeam int `json:"members_with_no_team"`
	FailedTeams       int `json:"failed_teams"`
}

// BackupSnapshot is the immutable point-in-time result of one backup run.
// It is built once by the aggregator and is the sole artifact handed to
// the exporters.
type BackupSnapshot struct {
	ID           string           `json:"id"`
	OrgName      string           `json:"org_name"`
	Timestamp    time.Time        `json:"backup_timestamp"`
	BackupType   string           `json:"backup_type"`
	Members      []Member         `json:"members"`
	Teams        []Team           `json:"teams"`
	Memberships  []TeamMembership `json:"team_memberships"`
	Repositories []TeamRepository `json:"team_repositories"`
	Errors       []FetchError     `json:"errors"`
	Summary      Summary          `json:"summary"`
}

// BackupTypeTeamsOnly is the only backup type produced by this tool:
// team structure without direct repository collaborators.
const BackupTypeTeamsOnly = "teams_only"
