package collector

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// defaultLimit is the authenticated GitHub API rate limit (5000/hour)
	defaultLimit = 5000

	// defaultThreshold is the reserve kept unspent; once remaining falls to
	// this level callers sleep until the budget resets
	defaultThreshold = 50

	// proactiveRate throttles outbound requests to ~1.2 req/sec so a run
	// does not burn the hourly budget in the first minutes
	proactiveRate = 1.2
)

// RateBudget is the shared tracker of the remaining API budget. It is the
// only state mutated by multiple workers concurrently; all reads and writes
// go through a single mutex.
type RateBudget struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	threshold int
	bucket    *rate.Limiter
	logger    *zap.Logger
}

// NewRateBudget creates a rate budget assuming a full quota
func NewRateBudget(logger *zap.Logger) *RateBudget {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateBudget{
		remaining: defaultLimit,
		resetAt:   time.Now().Add(time.Hour),
		threshold: defaultThreshold,
		bucket:    rate.NewLimiter(rate.Limit(proactiveRate), 1),
		logger:    logger,
	}
}

// SetProactiveRate retunes the outbound throttle. Larger values trade
// budget headroom for throughput.
func (b *RateBudget) SetProactiveRate(perSecond float64, burst int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bucket = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Acquire blocks the calling worker until a request may be issued. When the
// remaining budget is at or below the reserve threshold, the caller sleeps
// until the reset time and the budget is assumed replenished.
func (b *RateBudget) Acquire(ctx context.Context) error {
	b.mu.Lock()
	bucket := b.bucket
	b.mu.Unlock()
	if err := bucket.Wait(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	if b.remaining > b.threshold {
		b.mu.Unlock()
		return nil
	}
	remaining := b.remaining
	wait := time.Until(b.resetAt)
	b.mu.Unlock()

	if wait > 0 {
		b.logger.Warn("rate budget low, waiting for reset",
			zap.Int("remaining", remaining),
			zap.Duration("wait", wait.Round(time.Second)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	b.replenish()
	return nil
}

func (b *RateBudget) replenish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = defaultLimit
	b.resetAt = time.Now().Add(time.Hour)
}

// Update records the rate metadata returned by an API response. Zero-value
// metadata is ignored.
func (b *RateBudget) Update(info RateInfo) {
	if info.Reset.IsZero() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = info.Remaining
	b.resetAt = info.Reset
}

// Snapshot returns the current remaining budget and reset time
func (b *RateBudget) Snapshot() (remaining int, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining, b.resetAt
}
