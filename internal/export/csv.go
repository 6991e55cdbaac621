package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

func writeCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// WriteCSV writes the single-file CSV: one row per member/team pair, and
// one row with empty team columns for members outside every team.
func WriteCSV(snapshot *domain.BackupSnapshot, path string) error {
	idx := indexSnapshot(snapshot)

	header := []string{
		"Username", "User ID", "Email", "Org Role",
		"Team Name", "Team Slug", "Team Role", "Team Privacy", "Team Repositories",
	}

	var rows [][]string
	for _, member := range snapshot.Members {
		base := []string{
			member.Login,
			fmt.Sprintf("%d", member.ID),
			member.Email,
			string(member.Role),
		}

		memberships := idx.membershipsByLogin[member.Login]
		if len(memberships) == 0 {
			rows = append(rows, append(append([]string{}, base...), "", "", "", "", ""))
			continue
		}
		for _, m := range memberships {
			team := idx.teamsBySlug[m.TeamSlug]
			rows = append(rows, append(append([]string{}, base...),
				team.Name,
				team.Slug,
				string(m.Role),
				string(team.Privacy),
				strings.Join(idx.repoNames(team.Slug), "; "),
			))
		}
	}

	return writeCSVFile(path, header, rows)
}

// WriteMultiCSV writes the focused per-concern CSV files and returns their
// paths.
func WriteMultiCSV(snapshot *domain.BackupSnapshot, basePath string) ([]string, error) {
	idx := indexSnapshot(snapshot)

	emailOf := make(map[string]string, len(snapshot.Members))
	orgRoleOf := make(map[string]domain.OrgRole, len(snapshot.Members))
	for _, m := range snapshot.Members {
		emailOf[m.Login] = m.Email
		orgRoleOf[m.Login] = m.Role
	}

	var written []string

	// Teams overview
	var teamRows [][]string
	for _, team := range snapshot.Teams {
		repos := idx.repoNames(team.Slug)
		teamRows = append(teamRows, []string{
			team.Name,
			team.Slug,
			string(team.Privacy),
			team.Description,
			fmt.Sprintf("%d", len(idx.membershipsBySlug[team.Slug])),
			fmt.Sprintf("%d", len(repos)),
			strings.Join(repos, "; "),
		})
	}
	path := basePath + "_teams_overview.csv"
	if err := writeCSVFile(path,
		[]string{"Team Name", "Team Slug", "Privacy", "Description", "Member Count", "Repository Count", "Repository List"},
		teamRows); err != nil {
		return written, err
	}
	written = append(written, path)

	// Team memberships
	var membershipRows [][]string
	for _, m := range snapshot.Memberships {
		team := idx.teamsBySlug[m.TeamSlug]
		membershipRows = append(membershipRows, []string{
			team.Name,
			m.TeamSlug,
			m.Login,
			emailOf[m.Login],
			string(m.Role),
			string(orgRoleOf[m.Login]),
		})
	}
	path = basePath + "_team_memberships.csv"
	if err := writeCSVFile(path,
		[]string{"Team Name", "Team Slug", "Username", "User Email", "Team Role", "Org Role"},
		membershipRows); err != nil {
		return written, err
	}
	written = append(written, path)

	// Team repository access
	var repoRows [][]string
	for _, r := range snapshot.Repositories {
		team := idx.teamsBySlug[r.TeamSlug]
		parts := strings.Split(r.RepoFullName, "/")
		repoRows = append(repoRows, []string{
			team.Name,
			r.TeamSlug,
			parts[len(parts)-1],
			r.RepoFullName,
			r.Permission,
		})
	}
	path = basePath + "_team_repositories.csv"
	if err := writeCSVFile(path,
		[]string{"Team Name", "Team Slug", "Repository", "Repository Org/Name", "Permission"},
		repoRows); err != nil {
		return written, err
	}
	written = append(written, path)

	// Users summary
	var userRows [][]string
	for _, member := range snapshot.Members {
		memberships := idx.membershipsByLogin[member.Login]
		teamNames := make([]string, 0, len(memberships))
		for _, m := range memberships {
			teamNames = append(teamNames, idx.teamsBySlug[m.TeamSlug].Name)
		}
		userRows = append(userRows, []string{
			member.Login,
			fmt.Sprintf("%d", member.ID),
			member.Email,
			string(member.Role),
			fmt.Sprintf("%d", len(memberships)),
			strings.Join(teamNames, "; "),
		})
	}
	path = basePath + "_users_summary.csv"
	if err := writeCSVFile(path,
		[]string{"Username", "User ID", "Email", "Org Role", "Team Count", "Team List"},
		userRows); err != nil {
		return written, err
	}
	written = append(written, path)

	// Users without teams
	var noTeamRows [][]string
	for _, member := range snapshot.Members {
		if len(idx.membershipsByLogin[member.Login]) == 0 {
			noTeamRows = append(noTeamRows, []string{
				member.Login,
				fmt.Sprintf("%d", member.ID),
				member.Email,
				string(member.Role),
			})
		}
	}
	path = basePath + "_users_without_teams.csv"
	if err := writeCSVFile(path,
		[]string{"Username", "User ID", "Email", "Org Role"},
		noTeamRows); err != nil {
		return written, err
	}
	written = append(written, path)

	return written, nil
}
