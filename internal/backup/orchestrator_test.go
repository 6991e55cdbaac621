package backup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpk-labs/github-teams-backup/internal/collector"
	"github.com/cpk-labs/github-teams-backup/internal/config"
	"github.com/cpk-labs/github-teams-backup/internal/domain"
	apperrors "github.com/cpk-labs/github-teams-backup/internal/errors"
)

// fakeAPI is an in-memory implementation of collector.API
type fakeAPI struct {
	account    *domain.Account
	verifyErr  error
	members    []domain.Member
	membersErr error
	teams      []domain.Team
	teamsErr   error

	teamMembers map[string][]collector.TeamMemberEntry
	teamRepos   map[string][]collector.TeamRepoEntry
	memberErrs  map[string]error
	repoErrs    map[string]error

	pageSize int
}

func fullRate() collector.RateInfo {
	return collector.RateInfo{Remaining: 5000, Reset: time.Now().Add(time.Hour)}
}

func paginate[T any](items []T, page, size int) *collector.Page[T] {
	if size <= 0 {
		size = 100
	}
	start := (page - 1) * size
	if start >= len(items) {
		return &collector.Page[T]{Rate: fullRate()}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	next := 0
	if end < len(items) {
		next = page + 1
	}
	return &collector.Page[T]{Items: items[start:end], NextPage: next, Rate: fullRate()}
}

func (f *fakeAPI) VerifyAccess(_ context.Context, org string) (*domain.Account, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if f.account != nil {
		return f.account, nil
	}
	return &domain.Account{Login: org}, nil
}

func (f *fakeAPI) ListMembersPage(_ context.Context, _ string, page int) (*collector.Page[domain.Member], error) {
	if f.membersErr != nil {
		return nil, f.membersErr
	}
	return paginate(f.members, page, f.pageSize), nil
}

func (f *fakeAPI) ListTeamsPage(_ context.Context, _ string, page int) (*collector.Page[domain.Team], error) {
	if f.teamsErr != nil {
		return nil, f.teamsErr
	}
	return paginate(f.teams, page, f.pageSize), nil
}

func (f *fakeAPI) ListTeamMembersPage(_ context.Context, _, slug string, page int) (*collector.Page[collector.TeamMemberEntry], error) {
	if err := f.memberErrs[slug]; err != nil {
		return nil, err
	}
	return paginate(f.teamMembers[slug], page, f.pageSize), nil
}

func (f *fakeAPI) ListTeamReposPage(_ context.Context, _, slug string, page int) (*collector.Page[collector.TeamRepoEntry], error) {
	if err := f.repoErrs[slug]; err != nil {
		return nil, err
	}
	return paginate(f.teamRepos[slug], page, f.pageSize), nil
}

// newScenarioAPI builds the reference org: 5 members, 3 teams. carol is the
// sole member of gamma, eve belongs to no team.
func newScenarioAPI() *fakeAPI {
	return &fakeAPI{
		members: []domain.Member{
			{Login: "alice", ID: 1, Role: domain.OrgRoleAdmin},
			{Login: "bob", ID: 2, Role: domain.OrgRoleMember},
			{Login: "carol", ID: 3, Role: domain.OrgRoleMember},
			{Login: "dan", ID: 4, Role: domain.OrgRoleMember},
			{Login: "eve", ID: 5, Role: domain.OrgRoleMember},
		},
		teams: []domain.Team{
			{ID: 1, Slug: "alpha", Name: "Alpha", Privacy: domain.TeamPrivacyClosed},
			{ID: 2, Slug: "beta", Name: "Beta", Privacy: domain.TeamPrivacyClosed},
			{ID: 3, Slug: "gamma", Name: "Gamma", Privacy: domain.TeamPrivacySecret},
		},
		teamMembers: map[string][]collector.TeamMemberEntry{
			"alpha": {
				{Login: "alice", Role: domain.TeamRoleMaintainer},
				{Login: "bob", Role: domain.TeamRoleMember},
			},
			"beta": {
				{Login: "bob", Role: domain.TeamRoleMember},
				{Login: "dan", Role: domain.TeamRoleMember},
			},
			"gamma": {
				{Login: "carol", Role: domain.TeamRoleMaintainer},
			},
		},
		teamRepos: map[string][]collector.TeamRepoEntry{
			"alpha": {{FullName: "acme/app", Permission: "push"}},
			"beta":  {{FullName: "acme/infra", Permission: "admin"}},
			"gamma": {{FullName: "acme/secrets", Permission: "pull"}},
		},
		memberErrs: map[string]error{},
		repoErrs:   map[string]error{},
	}
}

func testConfig(org string) *config.BackupConfig {
	return &config.BackupConfig{
		Token:          "test-token",
		OrgName:        org,
		BatchSize:      config.DefaultBatchSize,
		MaxWorkers:     config.DefaultMaxWorkers,
		RequestTimeout: time.Second,
	}
}

func testBudget() *collector.RateBudget {
	budget := collector.NewRateBudget(nil)
	budget.SetProactiveRate(100000, 1000)
	return budget
}

func runOrchestrator(t *testing.T, api collector.API, cfg *config.BackupConfig) (*domain.BackupSnapshot, error) {
	t.Helper()
	return NewOrchestrator(cfg, api, testBudget(), nil).Run(context.Background())
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("full backup of healthy org", func(t *testing.T) {
		api := newScenarioAPI()

		snapshot, err := runOrchestrator(t, api, testConfig("acme"))

		require.NoError(t, err)
		assert.Equal(t, "acme", snapshot.OrgName)
		assert.Equal(t, domain.BackupTypeTeamsOnly, snapshot.BackupType)
		assert.NotEmpty(t, snapshot.ID)
		assert.Equal(t, 5, snapshot.Summary.TotalMembers)
		assert.Equal(t, 3, snapshot.Summary.TotalTeams)
		assert.Equal(t, 5, snapshot.Summary.TotalMemberships)
		assert.Equal(t, 1, snapshot.Summary.MembersWithNoTeam)
		assert.Empty(t, snapshot.Errors)
	})

	t.Run("beta permission failure yields partial snapshot", func(t *testing.T) {
		api := newScenarioAPI()
		api.memberErrs["beta"] = &collector.HTTPError{Status: 403, Err: errors.New("forbidden")}

		snapshot, err := runOrchestrator(t, api, testConfig("acme"))

		require.NoError(t, err)
		assert.Equal(t, 3, snapshot.Summary.TotalTeams)

		require.Len(t, snapshot.Errors, 1)
		assert.Equal(t, "beta", snapshot.Errors[0].TeamSlug)
		assert.Equal(t, domain.FetchErrorPermission, snapshot.Errors[0].Kind)

		for _, m := range snapshot.Memberships {
			assert.Contains(t, []string{"alpha", "gamma"}, m.TeamSlug)
		}
		for _, r := range snapshot.Repositories {
			assert.Contains(t, []string{"alpha", "gamma"}, r.TeamSlug)
		}

		// Members-with-no-team is computed over the full 5-member set:
		// bob and dan lose their beta rows, dan and eve end up teamless
		assert.Equal(t, 2, snapshot.Summary.MembersWithNoTeam)
	})

	t.Run("limit users truncates before detail fetch", func(t *testing.T) {
		api := newScenarioAPI()
		cfg := testConfig("acme")
		cfg.LimitUsers = 2

		snapshot, err := runOrchestrator(t, api, cfg)

		require.NoError(t, err)
		require.Len(t, snapshot.Members, 2)
		assert.Equal(t, "alice", snapshot.Members[0].Login)
		assert.Equal(t, "bob", snapshot.Members[1].Login)

		for _, m := range snapshot.Memberships {
			assert.Contains(t, []string{"alice", "bob"}, m.Login)
		}

		// gamma's only member was truncated away: the team still appears,
		// with no memberships and no error recorded
		slugs := make([]string, 0, len(snapshot.Teams))
		for _, tm := range snapshot.Teams {
			slugs = append(slugs, tm.Slug)
		}
		assert.Contains(t, slugs, "gamma")
		for _, m := range snapshot.Memberships {
			assert.NotEqual(t, "gamma", m.TeamSlug)
		}
		assert.Empty(t, snapshot.Errors)
	})

	t.Run("access failure is fatal", func(t *testing.T) {
		api := newScenarioAPI()
		api.verifyErr = &collector.HTTPError{Status: 404, Err: errors.New("not found")}

		snapshot, err := runOrchestrator(t, api, testConfig("ghost-org"))

		require.Error(t, err)
		assert.Nil(t, snapshot)
		assert.True(t, apperrors.IsAccessDenied(err))
		assert.Contains(t, err.Error(), "ghost-org")
	})

	t.Run("member enumeration failure is fatal", func(t *testing.T) {
		api := newScenarioAPI()
		api.membersErr = errors.New("connection reset")

		snapshot, err := runOrchestrator(t, api, testConfig("acme"))

		require.Error(t, err)
		assert.Nil(t, snapshot)
		assert.True(t, apperrors.IsNetwork(err))
	})

	t.Run("team enumeration failure is fatal", func(t *testing.T) {
		api := newScenarioAPI()
		api.teamsErr = errors.New("connection reset")

		snapshot, err := runOrchestrator(t, api, testConfig("acme"))

		require.Error(t, err)
		assert.Nil(t, snapshot)
		assert.True(t, apperrors.IsNetwork(err))
	})

	t.Run("rate limit before any team succeeds is fatal", func(t *testing.T) {
		api := newScenarioAPI()
		for _, slug := range []string{"alpha", "beta", "gamma"} {
			api.memberErrs[slug] = &collector.HTTPError{Status: 429, RetryAfter: time.Millisecond, Err: errors.New("rate limited")}
		}

		snapshot, err := runOrchestrator(t, api, testConfig("acme"))

		require.Error(t, err)
		assert.Nil(t, snapshot)
		assert.True(t, apperrors.IsRateLimited(err))
	})

	t.Run("rate limit on one team is downgraded to fetch error", func(t *testing.T) {
		api := newScenarioAPI()
		api.memberErrs["beta"] = &collector.HTTPError{Status: 429, RetryAfter: time.Millisecond, Err: errors.New("rate limited")}

		snapshot, err := runOrchestrator(t, api, testConfig("acme"))

		require.NoError(t, err)
		require.Len(t, snapshot.Errors, 1)
		assert.Equal(t, domain.FetchErrorRateLimited, snapshot.Errors[0].Kind)
	})

	t.Run("cancellation surfaces as cancelled error", func(t *testing.T) {
		api := newScenarioAPI()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		snapshot, err := NewOrchestrator(testConfig("acme"), api, testBudget(), nil).Run(ctx)

		require.Error(t, err)
		assert.Nil(t, snapshot)
		assert.True(t, apperrors.IsCancelled(err))
	})

	t.Run("batch size and worker count never change snapshot content", func(t *testing.T) {
		normalize := func(s *domain.BackupSnapshot) string {
			s.ID = ""
			s.Timestamp = time.Time{}
			data, err := json.Marshal(s)
			require.NoError(t, err)
			return string(data)
		}

		configs := [][2]int{{1, 1}, {2, 3}, {20, 5}}
		var snapshots []string
		for _, c := range configs {
			cfg := testConfig("acme")
			cfg.BatchSize = c[0]
			cfg.MaxWorkers = c[1]

			snapshot, err := runOrchestrator(t, newScenarioAPI(), cfg)
			require.NoError(t, err)
			snapshots = append(snapshots, normalize(snapshot))
		}

		assert.Equal(t, snapshots[0], snapshots[1])
		assert.Equal(t, snapshots[0], snapshots[2])
	})

	t.Run("multi-page enumeration collects everything", func(t *testing.T) {
		api := newScenarioAPI()
		api.pageSize = 2

		snapshot, err := runOrchestrator(t, api, testConfig("acme"))

		require.NoError(t, err)
		assert.Equal(t, 5, snapshot.Summary.TotalMembers)
		assert.Equal(t, 3, snapshot.Summary.TotalTeams)
		assert.Equal(t, 5, snapshot.Summary.TotalMemberships)
	})
}
