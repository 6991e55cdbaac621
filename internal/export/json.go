package export

import (
	"encoding/json"
	"os"
	"time"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

// WriteJSON writes the full snapshot as indented JSON
func WriteJSON(snapshot *domain.BackupSnapshot, path string) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// structuredBackup is the team-focused view: teams with their members and
// repositories inlined, plus members outside every team.
type structuredBackup struct {
	OrgName         string           `json:"org_name"`
	BackupTimestamp time.Time        `json:"backup_timestamp"`
	BackupType      string           `json:"backup_type"`
	Teams           []structuredTeam `json:"teams"`
	MembersNoTeam   []domain.Member  `json:"members_without_teams"`
	Errors          []domain.FetchError `json:"errors,omitempty"`
	Summary         domain.Summary   `json:"summary"`
}

type structuredTeam struct {
	Name         string             `json:"name"`
	Slug         string             `json:"slug"`
	Description  string             `json:"description,omitempty"`
	Privacy      domain.TeamPrivacy `json:"privacy"`
	Members      []structuredMember `json:"members"`
	Repositories []string           `json:"repositories"`
}

type structuredMember struct {
	Login string          `json:"login"`
	Email string          `json:"email,omitempty"`
	Role  domain.TeamRole `json:"role"`
}

// WriteStructuredJSON writes the team-focused JSON view
func WriteStructuredJSON(snapshot *domain.BackupSnapshot, path string) error {
	idx := indexSnapshot(snapshot)

	emailOf := make(map[string]string, len(snapshot.Members))
	for _, m := range snapshot.Members {
		emailOf[m.Login] = m.Email
	}

	out := structuredBackup{
		OrgName:         snapshot.OrgName,
		BackupTimestamp: snapshot.Timestamp,
		BackupType:      snapshot.BackupType,
		Teams:           []structuredTeam{},
		MembersNoTeam:   []domain.Member{},
		Errors:          snapshot.Errors,
		Summary:         snapshot.Summary,
	}

	for _, team := range snapshot.Teams {
		st := structuredTeam{
			Name:         team.Name,
			Slug:         team.Slug,
			Description:  team.Description,
			Privacy:      team.Privacy,
			Members:      []structuredMember{},
			Repositories: idx.repoNames(team.Slug),
		}
		for _, m := range idx.membershipsBySlug[team.Slug] {
			st.Members = append(st.Members, structuredMember{
				Login: m.Login,
				Email: emailOf[m.Login],
				Role:  m.Role,
			})
		}
		out.Teams = append(out.Teams, st)
	}

	for _, member := range snapshot.Members {
		if len(idx.membershipsByLogin[member.Login]) == 0 {
			out.MembersNoTeam = append(out.MembersNoTeam, member)
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
