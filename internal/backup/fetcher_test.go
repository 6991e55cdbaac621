package backup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpk-labs/github-teams-backup/internal/collector"
	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

func TestTeamDetailFetcher_Fetch(t *testing.T) {
	alpha := domain.Team{ID: 1, Slug: "alpha", Name: "Alpha"}

	t.Run("successful fetch carries memberships and repositories", func(t *testing.T) {
		api := newScenarioAPI()
		fetcher := NewTeamDetailFetcher(api, testBudget(), "acme", nil)

		result := fetcher.Fetch(context.Background(), alpha)

		require.False(t, result.Failed())
		require.NotNil(t, result.Detail)
		require.Len(t, result.Detail.Memberships, 2)
		assert.Equal(t, "alpha", result.Detail.Memberships[0].TeamSlug)
		assert.Equal(t, int64(1), result.Detail.Memberships[0].TeamID)
		require.Len(t, result.Detail.Repositories, 1)
		assert.Equal(t, "acme/app", result.Detail.Repositories[0].RepoFullName)
		assert.Equal(t, "push", result.Detail.Repositories[0].Permission)
	})

	t.Run("member listing failure discards the whole detail", func(t *testing.T) {
		api := newScenarioAPI()
		api.memberErrs["alpha"] = &collector.HTTPError{Status: 403, Err: errors.New("forbidden")}
		fetcher := NewTeamDetailFetcher(api, testBudget(), "acme", nil)

		result := fetcher.Fetch(context.Background(), alpha)

		require.True(t, result.Failed())
		assert.Nil(t, result.Detail)
		assert.Equal(t, domain.FetchErrorPermission, result.Err.Kind)
		assert.Equal(t, "alpha", result.Err.TeamSlug)
		assert.Equal(t, int64(1), result.Err.TeamID)
	})

	t.Run("repository listing failure discards already fetched members", func(t *testing.T) {
		api := newScenarioAPI()
		api.repoErrs["alpha"] = errors.New("connection reset")
		fetcher := NewTeamDetailFetcher(api, testBudget(), "acme", nil)

		result := fetcher.Fetch(context.Background(), alpha)

		require.True(t, result.Failed())
		assert.Nil(t, result.Detail)
		assert.Equal(t, domain.FetchErrorNetwork, result.Err.Kind)
	})

	t.Run("missing team maps to not found", func(t *testing.T) {
		api := newScenarioAPI()
		api.memberErrs["alpha"] = &collector.HTTPError{Status: 404, Err: errors.New("not found")}
		fetcher := NewTeamDetailFetcher(api, testBudget(), "acme", nil)

		result := fetcher.Fetch(context.Background(), alpha)

		require.True(t, result.Failed())
		assert.Equal(t, domain.FetchErrorNotFound, result.Err.Kind)
	})
}
