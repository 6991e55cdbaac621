// Package aggregator merges enumerated members, teams and per-team detail
// results into an immutable snapshot. The output depends only on the input
// values, never on the order detail results were produced.
package aggregator

import (
	"sort"
	"time"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

// Aggregate builds the final snapshot. Memberships referencing a member
// outside the (possibly truncated) member set are dropped, failed teams
// contribute a FetchError and no rows, and every list is explicitly sorted
// so re-aggregating the same input yields identical output.
func Aggregate(orgName, id string, timestamp time.Time, members []domain.Member, teams []domain.Team, results map[string]domain.TeamResult) *domain.BackupSnapshot {
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m.Login] = true
	}

	var memberships []domain.TeamMembership
	var repositories []domain.TeamRepository
	var fetchErrors []domain.FetchError

	for _, team := range teams {
		result, ok := results[team.Slug]
		if !ok {
			continue
		}
		if result.Failed() {
			fetchErrors = append(fetchErrors, *result.Err)
			continue
		}
		for _, membership := range result.Detail.Memberships {
			if memberSet[membership.Login] {
				memberships = append(memberships, membership)
			}
		}
		repositories = append(repositories, result.Detail.Repositories...)
	}

	sortedMembers := make([]domain.Member, len(members))
	copy(sortedMembers, members)
	sort.Slice(sortedMembers, func(i, j int) bool {
		return sortedMembers[i].Login < sortedMembers[j].Login
	})

	sortedTeams := make([]domain.Team, len(teams))
	copy(sortedTeams, teams)
	sort.Slice(sortedTeams, func(i, j int) bool {
		return sortedTeams[i].Slug < sortedTeams[j].Slug
	})

	sort.Slice(memberships, func(i, j int) bool {
		if memberships[i].TeamSlug != memberships[j].TeamSlug {
			return memberships[i].TeamSlug < memberships[j].TeamSlug
		}
		return memberships[i].Login < memberships[j].Login
	})

	sort.Slice(repositories, func(i, j int) bool {
		if repositories[i].TeamSlug != repositories[j].TeamSlug {
			return repositories[i].TeamSlug < repositories[j].TeamSlug
		}
		return repositories[i].RepoFullName < repositories[j].RepoFullName
	})

	sort.Slice(fetchErrors, func(i, j int) bool {
		return fetchErrors[i].TeamSlug < fetchErrors[j].TeamSlug
	})

	return &domain.BackupSnapshot{
		ID:           id,
		OrgName:      orgName,
		Timestamp:    timestamp,
		BackupType:   domain.BackupTypeTeamsOnly,
		Members:      sortedMembers,
		Teams:        sortedTeams,
		Memberships:  memberships,
		Repositories: repositories,
		Errors:       fetchErrors,
		Summary:      summarize(sortedMembers, sortedTeams, memberships, repositories, fetchErrors),
	}
}

func summarize(members []domain.Member, teams []domain.Team, memberships []domain.TeamMembership, repositories []domain.TeamRepository, fetchErrors []domain.FetchError) domain.Summary {
	withTeams := make(map[string]bool)
	for _, m := range memberships {
		withTeams[m.Login] = true
	}

	noTeam := 0
	for _, member := range members {
		if !withTeams[member.Login] {
			noTeam++
		}
	}

	return domain.Summary{
		TotalMembers:      len(members),
		TotalTeams:        len(teams),
		TotalMemberships:  len(memberships),
		TotalTeamRepos:    len(repositories),
		MembersWithTeams:  len(members) - noTeam,
		MembersWithNoTeam: noTeam,
		FailedTeams:       len(fetchErrors),
	}
}
