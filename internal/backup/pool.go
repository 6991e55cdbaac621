package backup

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

// FetchFunc produces the outcome for one team
type FetchFunc func(ctx context.Context, team domain.Team) domain.TeamResult

// WorkerPool dispatches team detail fetches with bounded concurrency.
// Teams are partitioned into sequential batches; within a batch up to
// maxWorkers fetches run concurrently, and the next batch never starts
// before the current one fully resolves. The batch barrier is the point
// where the rate budget catches up between bursts.
type WorkerPool struct {
	fetch      FetchFunc
	batchSize  int
	maxWorkers int
	logger     *zap.Logger
}

// NewWorkerPool creates a pool with the given scheduling bounds
func NewWorkerPool(fetch FetchFunc, batchSize, maxWorkers int, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		fetch:      fetch,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// Run fetches detail for every team and returns the results keyed by team
// slug. Per-team failures are carried inside the results; Run itself only
// stops early when the context is cancelled, in which case unprocessed
// teams are absent from the returned map.
func (p *WorkerPool) Run(ctx context.Context, teams []domain.Team) map[string]domain.TeamResult {
	results := make(map[string]domain.TeamResult, len(teams))
	var mu sync.Mutex

	totalBatches := (len(teams) + p.batchSize - 1) / p.batchSize

	for start := 0; start < len(teams); start += p.batchSize {
		if ctx.Err() != nil {
			return results
		}

		end := start + p.batchSize
		if end > len(teams) {
			end = len(teams)
		}
		batch := teams[start:end]
		batchNum := start/p.batchSize + 1

		p.logger.Info("processing batch",
			zap.Int("batch", batchNum),
			zap.Int("total_batches", totalBatches),
			zap.Int("teams", len(batch)))

		var wg sync.WaitGroup
		semaphore := make(chan struct{}, p.maxWorkers)

		for _, team := range batch {
			wg.Add(1)
			go func(t domain.Team) {
				defer wg.Done()

				semaphore <- struct{}{}
				defer func() { <-semaphore }()

				if ctx.Err() != nil {
					return
				}

				result := p.fetch(ctx, t)

				mu.Lock()
				results[t.Slug] = result
				mu.Unlock()
			}(team)
		}

		wg.Wait()

		p.logger.Info("batch complete",
			zap.Int("batch", batchNum),
			zap.Int("processed", len(results)),
			zap.Int("total", len(teams)))
	}

	return results
}
