package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-github/v55/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

func newTestAPI(t *testing.T, handler http.Handler) *githubAPI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	return &githubAPI{
		client:        client,
		budget:        newTestBudget(),
		logger:        zap.NewNop(),
		maintainerSet: make(map[string]map[string]bool),
	}
}

func writeUsers(w http.ResponseWriter, logins ...string) {
	users := make([]map[string]any, 0, len(logins))
	for i, login := range logins {
		users = append(users, map[string]any{"login": login, "id": i + 1})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(users)
}

func TestGitHubAPI_ListMembersPage(t *testing.T) {
	t.Run("transient admin roster failure is retried with the page", func(t *testing.T) {
		fastRetries(t)
		var adminHits int64

		mux := http.NewServeMux()
		mux.HandleFunc("/orgs/acme/members", func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Query().Get("role") == "admin":
				if atomic.AddInt64(&adminHits, 1) == 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				writeUsers(w, "alice")
			case r.URL.Query().Get("filter") == "2fa_disabled":
				writeUsers(w)
			default:
				writeUsers(w, "alice", "bob")
			}
		})

		api := newTestAPI(t, mux)

		members, err := FetchAll(context.Background(), api.budget, func(ctx context.Context, page int) (*Page[domain.Member], error) {
			return api.ListMembersPage(ctx, "acme", page)
		})

		require.NoError(t, err)
		assert.Equal(t, int64(2), atomic.LoadInt64(&adminHits))

		require.Len(t, members, 2)
		assert.Equal(t, domain.OrgRoleAdmin, members[0].Role)
		assert.Equal(t, domain.OrgRoleMember, members[1].Role)
	})

	t.Run("rosters load once after success", func(t *testing.T) {
		var adminHits int64

		mux := http.NewServeMux()
		mux.HandleFunc("/orgs/acme/members", func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Query().Get("role") == "admin":
				atomic.AddInt64(&adminHits, 1)
				writeUsers(w, "alice")
			case r.URL.Query().Get("filter") == "2fa_disabled":
				writeUsers(w)
			default:
				writeUsers(w, "alice", "bob")
			}
		})

		api := newTestAPI(t, mux)
		ctx := context.Background()

		for page := 1; page <= 3; page++ {
			_, err := api.ListMembersPage(ctx, "acme", page)
			require.NoError(t, err)
		}

		assert.Equal(t, int64(1), atomic.LoadInt64(&adminHits))
	})

	t.Run("forbidden two-factor roster degrades to enabled", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/orgs/acme/members", func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Query().Get("role") == "admin":
				writeUsers(w, "alice")
			case r.URL.Query().Get("filter") == "2fa_disabled":
				w.WriteHeader(http.StatusForbidden)
			default:
				writeUsers(w, "alice", "bob")
			}
		})

		api := newTestAPI(t, mux)

		page, err := api.ListMembersPage(context.Background(), "acme", 1)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.True(t, page.Items[0].TwoFactorEnabled)
		assert.True(t, page.Items[1].TwoFactorEnabled)
	})
}
