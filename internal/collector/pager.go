package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	apperrors "github.com/cpk-labs/github-teams-backup/internal/errors"
)

// maxPageRetries bounds retries of a single page on transient failures
const maxPageRetries = 3

var (
	// retryBaseDelay is the initial backoff between page retries
	retryBaseDelay = time.Second

	// maxJitter is added to secondary rate limit backoffs so parallel
	// workers do not retry in lockstep
	maxJitter = 500 * time.Millisecond
)

// PageFunc fetches one page of a listing. Page numbering starts at 1.
type PageFunc[T any] func(ctx context.Context, page int) (*Page[T], error)

// FetchAll drains a paginated listing into a slice. Every page fetch passes
// through the rate budget first, and the budget is updated from each page's
// rate metadata. A transient failure (timeout, 5xx) is retried with
// exponential backoff up to maxPageRetries before the whole enumeration
// fails. A secondary rate limit response backs off by the indicated
// duration plus jitter; exhausting those retries fails the enumeration as
// rate limited.
func FetchAll[T any](ctx context.Context, budget *RateBudget, fetch PageFunc[T]) ([]T, error) {
	var all []T
	page := 1

	for {
		result, err := fetchPage(ctx, budget, fetch, page)
		if err != nil {
			return nil, err
		}

		all = append(all, result.Items...)
		budget.Update(result.Rate)

		if result.NextPage == 0 {
			return all, nil
		}
		page = result.NextPage
	}
}

func fetchPage[T any](ctx context.Context, budget *RateBudget, fetch PageFunc[T], page int) (*Page[T], error) {
	var lastErr error

	for attempt := 0; attempt < maxPageRetries; attempt++ {
		if err := budget.Acquire(ctx); err != nil {
			return nil, err
		}

		result, err := fetch(ctx, page)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			return nil, apperrors.NewNetworkError(fmt.Sprintf("page %d failed", page), err)
		}

		switch {
		case httpErr.RateLimited():
			delay := httpErr.RetryAfter + jitter()
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		case httpErr.Transient():
			delay := retryBaseDelay << attempt
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		default:
			// Non-retryable (404, 403 without retry-after, 4xx)
			return nil, classify(httpErr, page)
		}
	}

	var httpErr *HTTPError
	if errors.As(lastErr, &httpErr) && httpErr.RateLimited() {
		return nil, apperrors.NewRateLimitError(fmt.Sprintf("page %d rate limited after %d attempts", page, maxPageRetries), lastErr)
	}
	return nil, apperrors.NewNetworkError(fmt.Sprintf("page %d failed after %d attempts", page, maxPageRetries), lastErr)
}

func classify(err *HTTPError, page int) error {
	switch err.Status {
	case 404:
		return apperrors.NewNotFoundError(fmt.Sprintf("page %d", page))
	case 401, 403:
		return apperrors.NewForbiddenError(err.Error())
	default:
		return apperrors.NewNetworkError(fmt.Sprintf("page %d failed", page), err)
	}
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(maxJitter)))
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
