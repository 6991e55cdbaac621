package collector

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v55/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

const perPage = 100

// githubAPI implements API using the GitHub REST API. A client is scoped to
// a single backup run against a single organization.
type githubAPI struct {
	client *github.Client
	budget *RateBudget
	logger *zap.Logger

	// Role rosters are loaded once per run and consulted when building
	// member pages. A failed load is not cached, so the caller's page
	// retry reaches the roster listing again.
	rosterMu     sync.Mutex
	rosterLoaded bool
	adminSet     map[string]bool
	no2faSet     map[string]bool

	// Maintainer logins per team, filled lazily by team detail workers.
	maintainerMu  sync.Mutex
	maintainerSet map[string]map[string]bool
}

// NewGitHubAPI creates a GitHub API client authenticated with a personal
// access token or installation token.
func NewGitHubAPI(token string, timeout time.Duration, budget *RateBudget, logger *zap.Logger) API {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = timeout
	client := github.NewClient(tc)

	return &githubAPI{
		client:        client,
		budget:        budget,
		logger:        logger,
		maintainerSet: make(map[string]map[string]bool),
	}
}

// VerifyAccess checks that the organization exists and the token can read it
func (c *githubAPI) VerifyAccess(ctx context.Context, org string) (*domain.Account, error) {
	if err := c.budget.Acquire(ctx); err != nil {
		return nil, err
	}

	account, resp, err := c.client.Organizations.Get(ctx, org)
	if err != nil {
		return nil, wrapError(err, resp)
	}
	c.budget.Update(rateInfoFrom(resp))

	return &domain.Account{
		Login: account.GetLogin(),
		Name:  account.GetName(),
		Plan:  account.GetPlan().GetName(),
	}, nil
}

// ListMembersPage fetches one page of organization members
func (c *githubAPI) ListMembersPage(ctx context.Context, org string, page int) (*Page[domain.Member], error) {
	if err := c.loadRosters(ctx, org); err != nil {
		return nil, err
	}

	opts := &github.ListMembersOptions{
		ListOptions: github.ListOptions{PerPage: perPage, Page: page},
	}
	users, resp, err := c.client.Organizations.ListMembers(ctx, org, opts)
	if err != nil {
		return nil, wrapError(err, resp)
	}

	members := make([]domain.Member, 0, len(users))
	for _, user := range users {
		login := user.GetLogin()
		role := domain.OrgRoleMember
		if c.adminSet[login] {
			role = domain.OrgRoleAdmin
		}
		members = append(members, domain.Member{
			Login:            login,
			ID:               user.GetID(),
			Email:            user.GetEmail(),
			Role:             role,
			TwoFactorEnabled: !c.no2faSet[login],
		})
	}

	return &Page[domain.Member]{
		Items:    members,
		NextPage: resp.NextPage,
		Rate:     rateInfoFrom(resp),
	}, nil
}

// ListTeamsPage fetches one page of organization teams
func (c *githubAPI) ListTeamsPage(ctx context.Context, org string, page int) (*Page[domain.Team], error) {
	opts := &github.ListOptions{PerPage: perPage, Page: page}
	teams, resp, err := c.client.Teams.ListTeams(ctx, org, opts)
	if err != nil {
		return nil, wrapError(err, resp)
	}

	items := make([]domain.Team, 0, len(teams))
	for _, team := range teams {
		t := domain.Team{
			ID:          team.GetID(),
			Slug:        team.GetSlug(),
			Name:        team.GetName(),
			Description: team.GetDescription(),
			Privacy:     domain.TeamPrivacy(team.GetPrivacy()),
		}
		if team.Parent != nil {
			parentID := team.Parent.GetID()
			t.ParentID = &parentID
		}
		items = append(items, t)
	}

	return &Page[domain.Team]{
		Items:    items,
		NextPage: resp.NextPage,
		Rate:     rateInfoFrom(resp),
	}, nil
}

// ListTeamMembersPage fetches one page of a team's members with roles
func (c *githubAPI) ListTeamMembersPage(ctx context.Context, org, slug string, page int) (*Page[TeamMemberEntry], error) {
	maintainers, err := c.teamMaintainers(ctx, org, slug)
	if err != nil {
		return nil, err
	}

	opts := &github.TeamListTeamMembersOptions{
		ListOptions: github.ListOptions{PerPage: perPage, Page: page},
	}
	users, resp, err := c.client.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
	if err != nil {
		return nil, wrapError(err, resp)
	}

	entries := make([]TeamMemberEntry, 0, len(users))
	for _, user := range users {
		login := user.GetLogin()
		role := domain.TeamRoleMember
		if maintainers[login] {
			role = domain.TeamRoleMaintainer
		}
		entries = append(entries, TeamMemberEntry{Login: login, Role: role})
	}

	return &Page[TeamMemberEntry]{
		Items:    entries,
		NextPage: resp.NextPage,
		Rate:     rateInfoFrom(resp),
	}, nil
}

// ListTeamReposPage fetches one page of a team's repositories with permissions
func (c *githubAPI) ListTeamReposPage(ctx context.Context, org, slug string, page int) (*Page[TeamRepoEntry], error) {
	opts := &github.ListOptions{PerPage: perPage, Page: page}
	repos, resp, err := c.client.Teams.ListTeamReposBySlug(ctx, org, slug, opts)
	if err != nil {
		return nil, wrapError(err, resp)
	}

	entries := make([]TeamRepoEntry, 0, len(repos))
	for _, repo := range repos {
		entries = append(entries, TeamRepoEntry{
			FullName:   repo.GetFullName(),
			Permission: permissionOf(repo),
		})
	}

	return &Page[TeamRepoEntry]{
		Items:    entries,
		NextPage: resp.NextPage,
		Rate:     rateInfoFrom(resp),
	}, nil
}

// loadRosters fetches the admin and 2FA-disabled member rosters. Member
// pages consult them to fill in role and two-factor status, which the
// plain member listing does not carry. The rosters are kept after the
// first successful load; a failed load returns the error without caching
// it, so a retried member page retries the roster listing too.
func (c *githubAPI) loadRosters(ctx context.Context, org string) error {
	c.rosterMu.Lock()
	defer c.rosterMu.Unlock()
	if c.rosterLoaded {
		return nil
	}

	admins, err := c.memberLogins(ctx, org, &github.ListMembersOptions{Role: "admin"})
	if err != nil {
		return err
	}

	no2fa, err := c.memberLogins(ctx, org, &github.ListMembersOptions{Filter: "2fa_disabled"})
	if err != nil {
		// The 2fa_disabled filter needs org owner scope. Without it
		// two-factor status is unknown and reported as enabled.
		c.logger.Warn("cannot read two-factor roster, marking all members enabled",
			zap.String("org", org), zap.Error(err))
		no2fa = map[string]bool{}
	}

	c.adminSet = admins
	c.no2faSet = no2fa
	c.rosterLoaded = true
	return nil
}

func (c *githubAPI) memberLogins(ctx context.Context, org string, opts *github.ListMembersOptions) (map[string]bool, error) {
	logins := make(map[string]bool)
	opts.ListOptions = github.ListOptions{PerPage: perPage}

	for {
		if err := c.budget.Acquire(ctx); err != nil {
			return nil, err
		}
		users, resp, err := c.client.Organizations.ListMembers(ctx, org, opts)
		if err != nil {
			return nil, wrapError(err, resp)
		}
		c.budget.Update(rateInfoFrom(resp))

		for _, user := range users {
			logins[user.GetLogin()] = true
		}

		if resp.NextPage == 0 {
			return logins, nil
		}
		opts.Page = resp.NextPage
	}
}

// teamMaintainers returns the maintainer logins of a team, fetching and
// caching them on first use. Different workers touch different teams, so
// the cache map itself is the only contended state.
func (c *githubAPI) teamMaintainers(ctx context.Context, org, slug string) (map[string]bool, error) {
	c.maintainerMu.Lock()
	cached, ok := c.maintainerSet[slug]
	c.maintainerMu.Unlock()
	if ok {
		return cached, nil
	}

	maintainers := make(map[string]bool)
	opts := &github.TeamListTeamMembersOptions{
		Role:        "maintainer",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.budget.Acquire(ctx); err != nil {
			return nil, err
		}
		users, resp, err := c.client.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
		if err != nil {
			return nil, wrapError(err, resp)
		}
		c.budget.Update(rateInfoFrom(resp))

		for _, user := range users {
			maintainers[user.GetLogin()] = true
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.maintainerMu.Lock()
	c.maintainerSet[slug] = maintainers
	c.maintainerMu.Unlock()
	return maintainers, nil
}

// permissionOf maps a team repository's permission flags to the highest
// granted level.
func permissionOf(repo *github.Repository) string {
	perms := repo.GetPermissions()
	for _, level := range []string{"admin", "maintain", "push", "triage", "pull"} {
		if perms[level] {
			return level
		}
	}
	return "pull"
}

func rateInfoFrom(resp *github.Response) RateInfo {
	if resp == nil {
		return RateInfo{}
	}
	return RateInfo{
		Remaining: resp.Rate.Remaining,
		Reset:     resp.Rate.Reset.Time,
	}
}

// wrapError converts go-github errors to HTTPError values the pager can
// classify.
func wrapError(err error, resp *github.Response) error {
	if err == nil {
		return nil
	}

	if rateErr, ok := err.(*github.RateLimitError); ok {
		retryAfter := time.Until(rateErr.Rate.Reset.Time)
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return &HTTPError{
			Status:     http.StatusForbidden,
			RetryAfter: retryAfter,
			Err:        err,
		}
	}

	if abuseErr, ok := err.(*github.AbuseRateLimitError); ok {
		retryAfter := time.Minute
		if abuseErr.RetryAfter != nil {
			retryAfter = *abuseErr.RetryAfter
		}
		return &HTTPError{
			Status:     http.StatusForbidden,
			RetryAfter: retryAfter,
			Err:        err,
		}
	}

	if resp != nil {
		return &HTTPError{Status: resp.StatusCode, Err: err}
	}
	return &HTTPError{Err: err}
}
