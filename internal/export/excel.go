package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

const (
	headerFillColor     = "366092"
	teamHeaderFillColor = "4472C4"
)

// WriteExcel writes the snapshot as a styled workbook with one sheet per
// concern, following the layout of the CSV exports.
func WriteExcel(snapshot *domain.BackupSnapshot, path string) error {
	idx := indexSnapshot(snapshot)

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	teamHeaderStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{teamHeaderFillColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	writeSheet := func(name string, style int, header []string, rows [][]interface{}) error {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		headerCells := make([]interface{}, len(header))
		for i, h := range header {
			headerCells[i] = h
		}
		if err := f.SetSheetRow(name, "A1", &headerCells); err != nil {
			return err
		}
		lastCol, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", lastCol, style); err != nil {
			return err
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return err
			}
		}
		return f.SetColWidth(name, "A", "C", 24)
	}

	// Summary
	summaryRows := [][]interface{}{
		{"Organization", snapshot.OrgName},
		{"Backup Type", snapshot.BackupType},
		{"Backup Time", snapshot.Timestamp.Format("2006-01-02 15:04:05")},
		{"Total Members", snapshot.Summary.TotalMembers},
		{"Total Teams", snapshot.Summary.TotalTeams},
		{"Total Team Memberships", snapshot.Summary.TotalMemberships},
		{"Total Team Repositories", snapshot.Summary.TotalTeamRepos},
		{"Members With Teams", snapshot.Summary.MembersWithTeams},
		{"Members Without Teams", snapshot.Summary.MembersWithNoTeam},
		{"Failed Teams", snapshot.Summary.FailedTeams},
	}
	if err := writeSheet("Summary", headerStyle, []string{"Metric", "Value"}, summaryRows); err != nil {
		return err
	}

	// Teams overview
	var teamRows [][]interface{}
	for _, team := range snapshot.Teams {
		repos := idx.repoNames(team.Slug)
		teamRows = append(teamRows, []interface{}{
			team.Name,
			team.Slug,
			string(team.Privacy),
			team.Description,
			len(idx.membershipsBySlug[team.Slug]),
			len(repos),
			strings.Join(repos, "; "),
		})
	}
	if err := writeSheet("Teams Overview", headerStyle,
		[]string{"Team Name", "Team Slug", "Privacy", "Description", "Member Count", "Repository Count", "Repository List"},
		teamRows); err != nil {
		return err
	}

	// Team memberships
	emailOf := make(map[string]string, len(snapshot.Members))
	orgRoleOf := make(map[string]domain.OrgRole, len(snapshot.Members))
	for _, m := range snapshot.Members {
		emailOf[m.Login] = m.Email
		orgRoleOf[m.Login] = m.Role
	}
	var membershipRows [][]interface{}
	for _, m := range snapshot.Memberships {
		membershipRows = append(membershipRows, []interface{}{
			idx.teamsBySlug[m.TeamSlug].Name,
			m.TeamSlug,
			m.Login,
			emailOf[m.Login],
			string(m.Role),
			string(orgRoleOf[m.Login]),
		})
	}
	if err := writeSheet("Team Memberships", teamHeaderStyle,
		[]string{"Team Name", "Team Slug", "Username", "User Email", "Team Role", "Org Role"},
		membershipRows); err != nil {
		return err
	}

	// Team repositories
	var repoRows [][]interface{}
	for _, r := range snapshot.Repositories {
		repoRows = append(repoRows, []interface{}{
			idx.teamsBySlug[r.TeamSlug].Name,
			r.TeamSlug,
			r.RepoFullName,
			r.Permission,
		})
	}
	if err := writeSheet("Team Repositories", teamHeaderStyle,
		[]string{"Team Name", "Team Slug", "Repository", "Permission"},
		repoRows); err != nil {
		return err
	}

	// Users summary
	var userRows [][]interface{}
	for _, member := range snapshot.Members {
		memberships := idx.membershipsByLogin[member.Login]
		teamNames := make([]string, 0, len(memberships))
		for _, m := range memberships {
			teamNames = append(teamNames, idx.teamsBySlug[m.TeamSlug].Name)
		}
		userRows = append(userRows, []interface{}{
			member.Login,
			member.ID,
			member.Email,
			string(member.Role),
			member.TwoFactorEnabled,
			len(memberships),
			strings.Join(teamNames, "; "),
		})
	}
	if err := writeSheet("Users Summary", headerStyle,
		[]string{"Username", "User ID", "Email", "Org Role", "2FA Enabled", "Team Count", "Team List"},
		userRows); err != nil {
		return err
	}

	// Errors, only when a team failed
	if len(snapshot.Errors) > 0 {
		var errorRows [][]interface{}
		for _, e := range snapshot.Errors {
			errorRows = append(errorRows, []interface{}{
				e.TeamSlug,
				string(e.Kind),
				e.Message,
			})
		}
		if err := writeSheet("Errors", headerStyle,
			[]string{"Team Slug", "Kind", "Message"},
			errorRows); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	index, err := f.GetSheetIndex("Summary")
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
