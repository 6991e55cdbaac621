package backup

import (
	"context"

	"go.uber.org/zap"

	"github.com/cpk-labs/github-teams-backup/internal/collector"
	"github.com/cpk-labs/github-teams-backup/internal/domain"
	apperrors "github.com/cpk-labs/github-teams-backup/internal/errors"
)

// TeamDetailFetcher fetches the membership and repository rows for one
// team. Both listings must succeed for the team to count as fetched;
// otherwise the team is marked failed and contributes no rows at all.
type TeamDetailFetcher struct {
	api    collector.API
	budget *collector.RateBudget
	org    string
	logger *zap.Logger
}

// NewTeamDetailFetcher creates a fetcher scoped to one organization
func NewTeamDetailFetcher(api collector.API, budget *collector.RateBudget, org string, logger *zap.Logger) *TeamDetailFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamDetailFetcher{
		api:    api,
		budget: budget,
		org:    org,
		logger: logger,
	}
}

// Fetch retrieves one team's detail. Failures are converted to a FetchError
// carried in the result, never returned as an error, so one team cannot
// abort the batch it runs in.
func (f *TeamDetailFetcher) Fetch(ctx context.Context, team domain.Team) domain.TeamResult {
	members, err := collector.FetchAll(ctx, f.budget, func(ctx context.Context, page int) (*collector.Page[collector.TeamMemberEntry], error) {
		return f.api.ListTeamMembersPage(ctx, f.org, team.Slug, page)
	})
	if err != nil {
		return f.failed(team, err)
	}

	repos, err := collector.FetchAll(ctx, f.budget, func(ctx context.Context, page int) (*collector.Page[collector.TeamRepoEntry], error) {
		return f.api.ListTeamReposPage(ctx, f.org, team.Slug, page)
	})
	if err != nil {
		return f.failed(team, err)
	}

	detail := &domain.TeamDetail{Team: team}
	for _, m := range members {
		detail.Memberships = append(detail.Memberships, domain.TeamMembership{
			TeamID:   team.ID,
			TeamSlug: team.Slug,
			Login:    m.Login,
			Role:     m.Role,
		})
	}
	for _, r := range repos {
		detail.Repositories = append(detail.Repositories, domain.TeamRepository{
			TeamID:       team.ID,
			TeamSlug:     team.Slug,
			RepoFullName: r.FullName,
			Permission:   r.Permission,
		})
	}

	f.logger.Debug("team fetched",
		zap.String("team", team.Slug),
		zap.Int("members", len(detail.Memberships)),
		zap.Int("repos", len(detail.Repositories)))

	return domain.TeamResult{Team: team, Detail: detail}
}

func (f *TeamDetailFetcher) failed(team domain.Team, err error) domain.TeamResult {
	kind := kindOf(err)
	f.logger.Warn("team fetch failed",
		zap.String("team", team.Slug),
		zap.String("kind", string(kind)),
		zap.Error(err))

	return domain.TeamResult{
		Team: team,
		Err: &domain.FetchError{
			TeamID:   team.ID,
			TeamSlug: team.Slug,
			Kind:     kind,
			Message:  err.Error(),
		},
	}
}

func kindOf(err error) domain.FetchErrorKind {
	switch {
	case apperrors.IsRateLimited(err):
		return domain.FetchErrorRateLimited
	case apperrors.IsNotFound(err):
		return domain.FetchErrorNotFound
	case apperrors.IsForbidden(err):
		return domain.FetchErrorPermission
	default:
		return domain.FetchErrorNetwork
	}
}
