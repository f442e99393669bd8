package sleepscheduler

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/internal/circuitbreaker"
	"github.com/tori/consolidation/pb"
)

// fetchBatch pulls up to windowSize recent episodes from V, guarded by the
// vault-fetch circuit breaker and retried with exponential backoff and
// jitter up to maxRetries times on Unavailable errors.
func fetchBatch(ctx context.Context, client pb.VaultClient, breaker *circuitbreaker.CircuitBreaker, windowSize int, maxRetries int, backoffBase time.Duration) ([]episodeSample, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := circuitbreaker.ExecuteWithFallback(breaker,
			func() (*pb.ListRecentResponse, error) {
				return client.ListRecent(ctx, &pb.ListRecentRequest{Limit: uint32(windowSize)})
			},
			func(cbErr error) (*pb.ListRecentResponse, error) {
				return nil, apierr.Unavailable("sleepscheduler: vault fetch circuit open: %v", cbErr)
			},
		)
		if err == nil {
			return toSamples(resp), nil
		}
		lastErr = err
		if !apierr.Retryable(err) || attempt == maxRetries {
			break
		}

		delay := backoffBase * time.Duration(math.Pow(2, float64(attempt)))
		jitter := time.Duration(rand.Int63n(int64(backoffBase) + 1))
		select {
		case <-time.After(delay + jitter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, apierr.Unavailable("sleepscheduler: vault fetch exhausted %d retries: %v", maxRetries, lastErr)
}

func toSamples(resp *pb.ListRecentResponse) []episodeSample {
	out := make([]episodeSample, 0, len(resp.Episodes))
	for _, ep := range resp.Episodes {
		out = append(out, episodeSample{id: ep.ID, conceptIDs: ep.ConceptIDs, activation: ep.ActivationVector})
	}
	return out
}
