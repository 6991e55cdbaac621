package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cpk-labs/github-teams-backup/internal/aggregator"
	"github.com/cpk-labs/github-teams-backup/internal/collector"
	"github.com/cpk-labs/github-teams-backup/internal/config"
	"github.com/cpk-labs/github-teams-backup/internal/domain"
	apperrors "github.com/cpk-labs/github-teams-backup/internal/errors"
)

// Orchestrator sequences the phases of one backup run: access check,
// member enumeration, team enumeration, detail fetch, aggregation.
type Orchestrator struct {
	cfg    *config.BackupConfig
	api    collector.API
	budget *collector.RateBudget
	logger *zap.Logger
}

// NewOrchestrator creates an orchestrator for one run
func NewOrchestrator(cfg *config.BackupConfig, api collector.API, budget *collector.RateBudget, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		api:    api,
		budget: budget,
		logger: logger,
	}
}

// Run performs the backup and returns the snapshot. Per-team failures are
// recorded in the snapshot; only access failures, enumeration failures,
// a fully exhausted rate budget, and cancellation are fatal.
func (o *Orchestrator) Run(ctx context.Context) (*domain.BackupSnapshot, error) {
	org := o.cfg.OrgName

	o.logger.Info("starting teams backup",
		zap.String("org", org),
		zap.Int("batch_size", o.cfg.BatchSize),
		zap.Int("max_workers", o.cfg.MaxWorkers))

	account, err := o.api.VerifyAccess(ctx, org)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewCancelledError(fmt.Sprintf("backup of %s cancelled", org), ctx.Err())
		}
		return nil, apperrors.NewAccessError(fmt.Sprintf("cannot access organization %s", org), err)
	}
	o.logger.Info("organization verified", zap.String("login", account.Login))

	members, err := collector.FetchAll(ctx, o.budget, func(ctx context.Context, page int) (*collector.Page[domain.Member], error) {
		return o.api.ListMembersPage(ctx, org, page)
	})
	if err != nil {
		return nil, o.fatal(ctx, org, "enumerate members", err)
	}
	o.logger.Info("members enumerated", zap.Int("count", len(members)))

	if o.cfg.LimitUsers > 0 && len(members) > o.cfg.LimitUsers {
		o.logger.Info("test mode: truncating member set",
			zap.Int("limit", o.cfg.LimitUsers),
			zap.Int("original", len(members)))
		members = members[:o.cfg.LimitUsers]
	}

	teams, err := collector.FetchAll(ctx, o.budget, func(ctx context.Context, page int) (*collector.Page[domain.Team], error) {
		return o.api.ListTeamsPage(ctx, org, page)
	})
	if err != nil {
		return nil, o.fatal(ctx, org, "enumerate teams", err)
	}
	o.logger.Info("teams enumerated", zap.Int("count", len(teams)))

	fetcher := NewTeamDetailFetcher(o.api, o.budget, org, o.logger)
	pool := NewWorkerPool(fetcher.Fetch, o.cfg.BatchSize, o.cfg.MaxWorkers, o.logger)
	results := pool.Run(ctx, teams)

	if ctx.Err() != nil {
		return nil, apperrors.NewCancelledError(fmt.Sprintf("backup of %s cancelled", org), ctx.Err())
	}

	if err := checkBudgetExhausted(teams, results); err != nil {
		return nil, err
	}

	snapshot := aggregator.Aggregate(org, uuid.New().String(), time.Now(), members, teams, results)

	o.logger.Info("backup complete",
		zap.String("org", org),
		zap.Int("members", snapshot.Summary.TotalMembers),
		zap.Int("teams", snapshot.Summary.TotalTeams),
		zap.Int("memberships", snapshot.Summary.TotalMemberships),
		zap.Int("failed_teams", snapshot.Summary.FailedTeams))

	return snapshot, nil
}

func (o *Orchestrator) fatal(ctx context.Context, org, phase string, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewCancelledError(fmt.Sprintf("backup of %s cancelled", org), ctx.Err())
	}
	return fmt.Errorf("%s for %s: %w", phase, org, err)
}

// checkBudgetExhausted promotes rate limiting to a fatal error only when
// the budget ran out before any team detail succeeded. A partially rate
// limited run still produces a usable snapshot.
func checkBudgetExhausted(teams []domain.Team, results map[string]domain.TeamResult) error {
	if len(teams) == 0 || len(results) == 0 {
		return nil
	}
	for _, result := range results {
		if !result.Failed() || result.Err.Kind != domain.FetchErrorRateLimited {
			return nil
		}
	}
	return apperrors.NewRateLimitError(
		fmt.Sprintf("rate budget exhausted before any of %d teams could be fetched", len(teams)), nil)
}
