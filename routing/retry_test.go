package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/magictunnel/magictunnel/mtcerrors"
)

func TestShouldRetryRetryableSubstrings(t *testing.T) {
	cases := []string{"HTTP 503", "HTTP 502", "HTTP 500", "HTTP 504", "HTTP 429", "connection refused", "network unreachable", "request timeout"}
	for _, c := range cases {
		require.True(t, ShouldRetry(mtcerrors.NewRoutingError(c)), c)
	}
}

func TestShouldRetryNonRetryableSubstrings(t *testing.T) {
	cases := []string{"HTTP 401", "HTTP 403", "HTTP 400", "HTTP 404", "HTTP 422", "authentication failed", "authorization denied"}
	for _, c := range cases {
		require.False(t, ShouldRetry(mtcerrors.NewRoutingError(c)), c)
	}
}

func TestShouldRetryTypedErrors(t *testing.T) {
	require.False(t, ShouldRetry(&mtcerrors.AuthError{Reason: "bad token"}))
	require.False(t, ShouldRetry(&mtcerrors.ValidationError{Reason: "bad shape"}))
	require.False(t, ShouldRetry(&mtcerrors.ConfigError{Reason: "bad config"}))
	require.True(t, ShouldRetry(&mtcerrors.IoError{Reason: "broken pipe"}))
	require.True(t, ShouldRetry(mtcerrors.NewTypedRoutingError("custom", mtcerrors.BucketGeneral, true)))
	require.False(t, ShouldRetry(mtcerrors.NewTypedRoutingError("custom", mtcerrors.BucketGeneral, false)))
}

func TestShouldRetryUnknownErrorDefaultsFalse(t *testing.T) {
	require.False(t, ShouldRetry(errors.New("some opaque failure")))
}

func TestDefaultRetryConfigAssignment(t *testing.T) {
	cfg := DefaultRetryConfig()
	require.Equal(t, AggressiveRetryPolicy(), cfg.PolicyFor(KindHTTP))
	require.Equal(t, ConservativeRetryPolicy(), cfg.PolicyFor(KindLLM))
	require.Equal(t, ConservativeRetryPolicy(), cfg.PolicyFor(KindDatabase))
	require.Equal(t, DefaultRetryPolicy(), cfg.PolicyFor(KindSubprocess))
}

func TestCalculateDelayCappedAtMax(t *testing.T) {
	p := RetryPolicy{InitialDelayMs: 100, BackoffMultiplier: 10, MaxDelayMs: 500, UseJitter: false}
	require.Equal(t, int64(500), p.CalculateDelay(10).Milliseconds())
}

// TestRetryDelayMonotonicProperty verifies T-retry-2: delay(i) is
// monotonically non-decreasing modulo jitter, and never exceeds
// max_delay_ms * 1.25.
func TestRetryDelayMonotonicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("un-jittered delay is non-decreasing and jittered delay never exceeds max_delay_ms * 1.25", prop.ForAll(
		func(initial, maxDelay int64, multiplier float64, attempt int) bool {
			if initial <= 0 || maxDelay <= 0 || initial > maxDelay || multiplier < 1.0 {
				return true
			}
			base := RetryPolicy{InitialDelayMs: initial, MaxDelayMs: maxDelay, BackoffMultiplier: multiplier, UseJitter: false}
			if base.CalculateDelay(attempt+1) < base.CalculateDelay(attempt) {
				return false
			}
			p := RetryPolicy{InitialDelayMs: initial, MaxDelayMs: maxDelay, BackoffMultiplier: multiplier, UseJitter: true}
			d := p.CalculateDelay(attempt)
			return float64(d.Milliseconds()) <= float64(maxDelay)*1.25
		},
		gen.Int64Range(1, 5_000),
		gen.Int64Range(1, 60_000),
		gen.Float64Range(1.0, 5.0),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

// TestRetryAttemptCountProperty verifies T-retry-1: a persistently retryable
// error is attempted max_attempts times in total; a non-retryable error is
// attempted exactly once.
func TestRetryAttemptCountProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("retryable errors retried up to max_attempts, non-retryable attempted once", prop.ForAll(
		func(maxAttempts int, retryable bool) bool {
			policy := RetryPolicy{MaxAttempts: maxAttempts, InitialDelayMs: 1, MaxDelayMs: 1, BackoffMultiplier: 1}
			executor := NewRetryExecutor(nil)

			attempts := 0
			_, _ = executor.ExecuteWithRetry(context.Background(), "http", policy, func(ctx context.Context) (AgentResult, error) {
				attempts++
				if retryable {
					return AgentResult{}, mtcerrors.NewRoutingError("HTTP 503")
				}
				return AgentResult{}, mtcerrors.NewRoutingError("HTTP 401")
			})

			if retryable {
				return attempts == maxAttempts
			}
			return attempts == 1
		},
		gen.IntRange(1, 6),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestExecuteWithRetrySucceedsAfterFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialDelayMs: 1, MaxDelayMs: 1, BackoffMultiplier: 1}
	executor := NewRetryExecutor(nil)

	attempts := 0
	result, err := executor.ExecuteWithRetry(context.Background(), "http", policy, func(ctx context.Context) (AgentResult, error) {
		attempts++
		if attempts < 3 {
			return AgentResult{}, mtcerrors.NewRoutingError("HTTP 503")
		}
		return AgentResult{Success: true}, nil
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 3, attempts)
}
