package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

// RateInfo carries the rate-limit metadata returned alongside every API
// response.
type RateInfo struct {
	Remaining int
	Reset     time.Time
}

// Page is one page of a paginated listing. NextPage is 0 when this is the
// last page.
type Page[T any] struct {
	Items    []T
	NextPage int
	Rate     RateInfo
}

// TeamMemberEntry is one row of a team membership listing
type TeamMemberEntry struct {
	Login string
	Role  domain.TeamRole
}

// TeamRepoEntry is one row of a team repository listing
type TeamRepoEntry struct {
	FullName   string
	Permission string
}

// API defines the GitHub capability the backup engine consumes. All listing
// methods fetch a single page; pagination, rate gating and retries are
// driven by FetchAll.
type API interface {
	// VerifyAccess checks that the organization exists and the token can
	// read it
	VerifyAccess(ctx context.Context, org string) (*domain.Account, error)

	// ListMembersPage fetches one page of organization members
	ListMembersPage(ctx context.Context, org string, page int) (*Page[domain.Member], error)

	// ListTeamsPage fetches one page of organization teams
	ListTeamsPage(ctx context.Context, org string, page int) (*Page[domain.Team], error)

	// ListTeamMembersPage fetches one page of a team's members with roles
	ListTeamMembersPage(ctx context.Context, org, slug string, page int) (*Page[TeamMemberEntry], error)

	// ListTeamReposPage fetches one page of a team's repositories with permissions
	ListTeamReposPage(ctx context.Context, org, slug string, page int) (*Page[TeamRepoEntry], error)
}

// HTTPError is a transport-level failure from the GitHub API. Status 0
// means the request never produced a response (timeout, connection reset).
// RetryAfter is non-zero for secondary rate limit responses.
type HTTPError struct {
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	return fmt.Sprintf("HTTP %d: %v", e.Status, e.Err)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying at the page level
func (e *HTTPError) Transient() bool {
	return e.Status == 0 || e.Status >= 500
}

// RateLimited reports whether the failure is a primary or secondary rate
// limit response
func (e *HTTPError) RateLimited() bool {
	return e.RetryAfter > 0 || e.Status == 429
}
