package routing

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/magictunnel/magictunnel/mtcerrors"
	"github.com/magictunnel/magictunnel/telemetry"
)

// RetryPolicy governs how many times, and how long to wait between, retries
// of a single backend invocation.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelayMs    int64
	BackoffMultiplier float64
	MaxDelayMs        int64
	UseJitter         bool
}

// DefaultRetryPolicy is a balanced, general-purpose policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    500,
		BackoffMultiplier: 2.0,
		MaxDelayMs:        10_000,
		UseJitter:         true,
	}
}

// ConservativeRetryPolicy retries less aggressively, suited to slow or
// expensive backends like LLM providers and databases.
func ConservativeRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       2,
		InitialDelayMs:    1_000,
		BackoffMultiplier: 2.0,
		MaxDelayMs:        15_000,
		UseJitter:         true,
	}
}

// AggressiveRetryPolicy retries more readily, suited to cheap, idempotent
// HTTP backends.
func AggressiveRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       5,
		InitialDelayMs:    200,
		BackoffMultiplier: 1.5,
		MaxDelayMs:        5_000,
		UseJitter:         true,
	}
}

// CalculateDelay returns the backoff delay for the given zero-based attempt
// number: initial_delay_ms * multiplier^attempt, capped at max_delay_ms, then
// optionally scaled by a jitter factor in [1.0, 1.25).
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	raw := float64(p.InitialDelayMs) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if raw > float64(p.MaxDelayMs) {
		raw = float64(p.MaxDelayMs)
	}
	if p.UseJitter {
		raw *= 1.0 + rand.Float64()*0.25
	}
	return time.Duration(raw) * time.Millisecond
}

// RetryConfig assigns a RetryPolicy per agent-type, with a fallback for
// kinds not explicitly configured.
type RetryConfig struct {
	Default      RetryPolicy
	PerAgentType map[AgentKind]RetryPolicy
}

// DefaultRetryConfig mirrors the original router's assignment: aggressive
// for http, conservative for llm and database, and the general default for
// everything else.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		Default: DefaultRetryPolicy(),
		PerAgentType: map[AgentKind]RetryPolicy{
			KindHTTP:     AggressiveRetryPolicy(),
			KindLLM:      ConservativeRetryPolicy(),
			KindDatabase: ConservativeRetryPolicy(),
		},
	}
}

// PolicyFor returns the configured policy for kind, falling back to Default.
func (c *RetryConfig) PolicyFor(kind AgentKind) RetryPolicy {
	if p, ok := c.PerAgentType[kind]; ok {
		return p
	}
	return c.Default
}

// retryableSubstrings classifies an opaque error message as retryable when
// it contains one of these markers.
var retryableSubstrings = []string{
	"timeout",
	"timed out",
	"connection",
	"network",
	"500",
	"502",
	"503",
	"504",
	"429",
}

// nonRetryableSubstrings take priority over retryableSubstrings when both
// could match (e.g. "400" never retries even though "connection" might
// appear elsewhere in the same message).
var nonRetryableSubstrings = []string{
	"401",
	"403",
	"400",
	"404",
	"422",
	"authentication",
	"authorization",
}

// ShouldRetry decides whether err warrants another attempt. Typed errors
// (mtcerrors.*) are classified directly, except a RoutingError without a
// Retryable hint; that and anything else falls back to substring matching
// over the message, per the original classification rules.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	switch e := err.(type) {
	case *mtcerrors.AuthError:
		return false
	case *mtcerrors.ValidationError:
		return false
	case *mtcerrors.ConfigError:
		return false
	case *mtcerrors.IoError:
		return true
	case *mtcerrors.RoutingError:
		if e.Retryable != nil {
			return *e.Retryable
		}
		return shouldRetryMessage(e.Message)
	default:
		return shouldRetryMessage(err.Error())
	}
}

func shouldRetryMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, s := range nonRetryableSubstrings {
		if strings.Contains(lower, s) {
			return false
		}
	}
	for _, s := range retryableSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// ErrorBucketFor classifies err into a logging bucket, matching the
// before/after/on_error observer taxonomy.
func ErrorBucketFor(err error) mtcerrors.ErrorBucket {
	if err == nil {
		return mtcerrors.BucketGeneral
	}
	if re, ok := err.(*mtcerrors.RoutingError); ok && re.Bucket != "" {
		return re.Bucket
	}
	if _, ok := err.(*mtcerrors.AuthError); ok {
		return mtcerrors.BucketAuthentication
	}
	if _, ok := err.(*mtcerrors.ConfigError); ok {
		return mtcerrors.BucketConfiguration
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return mtcerrors.BucketTimeout
	case strings.Contains(lower, "connection"), strings.Contains(lower, "network"):
		return mtcerrors.BucketConnection
	case strings.Contains(lower, "authentication"), strings.Contains(lower, "authorization"),
		strings.Contains(lower, "401"), strings.Contains(lower, "403"):
		return mtcerrors.BucketAuthentication
	case strings.Contains(lower, "config"):
		return mtcerrors.BucketConfiguration
	default:
		return mtcerrors.BucketGeneral
	}
}

// RetryExecutor runs a backend operation under a RetryPolicy, sleeping
// between attempts according to CalculateDelay.
type RetryExecutor struct {
	Logger telemetry.Logger
}

// NewRetryExecutor returns a RetryExecutor that logs through logger. A nil
// logger is replaced by a no-op logger.
func NewRetryExecutor(logger telemetry.Logger) *RetryExecutor {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &RetryExecutor{Logger: logger}
}

// ExecuteWithRetry invokes op up to policy.MaxAttempts times, retrying only
// when ShouldRetry(err) is true and attempts remain. It returns the first
// success or the last error encountered.
func (r *RetryExecutor) ExecuteWithRetry(ctx context.Context, agentTypeName string, policy RetryPolicy, op func(ctx context.Context) (AgentResult, error)) (AgentResult, error) {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				r.Logger.Info(ctx, "recovered after retry", "agent_type", agentTypeName, "attempt", attempt)
			}
			return result, nil
		}
		lastErr = err
		if !ShouldRetry(err) {
			return AgentResult{}, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}
		delay := policy.CalculateDelay(attempt)
		r.Logger.Warn(ctx, "retrying after failure", "agent_type", agentTypeName, "attempt", attempt, "delay_ms", delay.Milliseconds())
		select {
		case <-ctx.Done():
			return AgentResult{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return AgentResult{}, lastErr
}
