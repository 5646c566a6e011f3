package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magictunnel/magictunnel/capability"
	"github.com/magictunnel/magictunnel/mtcerrors"
	"github.com/magictunnel/magictunnel/telemetry"
)

// scriptedBackend returns a scripted sequence of results/errors, one per
// invocation, repeating the last entry once exhausted.
type scriptedBackend struct {
	calls   int
	results []AgentResult
	errs    []error
}

func (b *scriptedBackend) Invoke(ctx context.Context, agentType *AgentType, call ToolCall, reqCtx RequestContext) (AgentResult, error) {
	idx := b.calls
	if idx >= len(b.results) {
		idx = len(b.results) - 1
	}
	b.calls++
	return b.results[idx], b.errs[idx]
}

func httpToolDef() capability.ToolDefinition {
	return capability.ToolDefinition{
		Name: "ping",
		Routing: capability.RoutingConfig{
			RoutingType: "http",
			Config: map[string]any{
				"method": "GET",
				"url":    "https://x/ping",
			},
		},
	}
}

// TestDispatchScenarioAHappyPath covers Scenario A: a single successful
// HTTP call records one request and one success.
func TestDispatchScenarioAHappyPath(t *testing.T) {
	backend := &scriptedBackend{
		results: []AgentResult{{Success: true, Data: "pong"}},
		errs:    []error{nil},
	}
	metrics := NewMetricsMiddleware()
	chain := NewMiddlewareChain(nil).Use(metrics)
	d := NewDispatcher(backend, WithMiddleware(chain))

	result, err := d.Dispatch(context.Background(), ToolCall{Name: "ping"}, httpToolDef(), NewRequestContext())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, backend.calls)

	snap := metrics.Snapshot()
	byAgent := snap["by_agent_type"].(map[string]any)["http"].(map[string]any)
	require.EqualValues(t, 1, byAgent["request_counts"])
	require.EqualValues(t, 1, byAgent["success_counts"])
}

// TestDispatchScenarioBRetryOn503 covers Scenario B: two 503s then success
// yields three invocations and two tracked retries.
func TestDispatchScenarioBRetryOn503(t *testing.T) {
	backend := &scriptedBackend{
		results: []AgentResult{{}, {}, {Success: true, Data: "pong"}},
		errs: []error{
			mtcerrors.NewRoutingError("HTTP 503"),
			mtcerrors.NewRoutingError("HTTP 503"),
			nil,
		},
	}
	metrics := NewMetricsMiddleware()
	chain := NewMiddlewareChain(nil).Use(metrics)
	retries := &RetryConfig{Default: RetryPolicy{MaxAttempts: 5, InitialDelayMs: 1, MaxDelayMs: 1, BackoffMultiplier: 1}}
	d := NewDispatcher(backend, WithMiddleware(chain), WithRetries(retries))

	result, err := d.Dispatch(context.Background(), ToolCall{Name: "ping"}, httpToolDef(), NewRequestContext())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 3, backend.calls)

	snap := metrics.Snapshot()
	byAgent := snap["by_agent_type"].(map[string]any)["http"].(map[string]any)
	require.EqualValues(t, 2, byAgent["retry_counts"])
}

// TestDispatchScenarioCNonRetryable401 covers Scenario C: a 401 aborts after
// one invocation with success=false.
func TestDispatchScenarioCNonRetryable401(t *testing.T) {
	backend := &scriptedBackend{
		results: []AgentResult{{}},
		errs:    []error{mtcerrors.NewRoutingError("HTTP 401")},
	}
	d := NewDispatcher(backend)

	result, err := d.Dispatch(context.Background(), ToolCall{Name: "ping"}, httpToolDef(), NewRequestContext())
	require.Error(t, err)
	require.False(t, result.Success)
	require.Equal(t, 1, backend.calls)
}

func TestDispatchUnknownRoutingTypeFails(t *testing.T) {
	backend := &scriptedBackend{results: []AgentResult{{}}, errs: []error{nil}}
	d := NewDispatcher(backend)

	toolDef := capability.ToolDefinition{
		Name:    "ping",
		Routing: capability.RoutingConfig{RoutingType: "fax", Config: map[string]any{}},
	}
	_, err := d.Dispatch(context.Background(), ToolCall{Name: "ping"}, toolDef, NewRequestContext())
	require.Error(t, err)
	require.Equal(t, 0, backend.calls)
}

func TestDispatchInstallsResolvedTimeout(t *testing.T) {
	var sawTimeout *int
	backend := backendFunc(func(ctx context.Context, agentType *AgentType, call ToolCall, reqCtx RequestContext) (AgentResult, error) {
		sawTimeout = agentType.Timeout()
		return AgentResult{Success: true}, nil
	})
	d := NewDispatcher(backend)

	_, err := d.Dispatch(context.Background(), ToolCall{Name: "ping"}, httpToolDef(), NewRequestContext())
	require.NoError(t, err)
	require.NotNil(t, sawTimeout)
	require.Equal(t, 30, *sawTimeout)
}

// TestDispatchWithClueLoggerAndOtelTracer exercises the production telemetry
// wiring (goa.design/clue/log and OTEL tracing, as opposed to the no-op
// defaults every other test uses) to confirm a Dispatcher configured this
// way drives a call end to end without panicking, including the retry
// path's Info/Warn log calls and the logging middleware's before/after Info
// calls. The call ends in success, so the middleware's on-error Warn path
// does not run here.
func TestDispatchWithClueLoggerAndOtelTracer(t *testing.T) {
	backend := &scriptedBackend{
		results: []AgentResult{{}, {Success: true, Data: "pong"}},
		errs:    []error{mtcerrors.NewRoutingError("HTTP 503"), nil},
	}
	clueLogger := telemetry.NewClueLogger()
	chain := NewMiddlewareChain(nil).Use(NewLoggingMiddleware(clueLogger, true, true))
	retries := &RetryConfig{Default: RetryPolicy{MaxAttempts: 3, InitialDelayMs: 1, MaxDelayMs: 1, BackoffMultiplier: 1}}
	d := NewDispatcher(backend,
		WithLogger(clueLogger),
		WithTracer(telemetry.NewOtelTracer("magictunnel.routing")),
		WithMiddleware(chain),
		WithRetries(retries),
	)

	result, err := d.Dispatch(context.Background(), ToolCall{Name: "ping"}, httpToolDef(), NewRequestContext())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, backend.calls)
}

func schemaToolDef() capability.ToolDefinition {
	toolDef := httpToolDef()
	toolDef.InputSchema = map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"id": map[string]any{"type": "string"}},
		"required":             []string{"id"},
		"additionalProperties": false,
	}
	return toolDef
}

// TestDispatchValidatesArgumentsAgainstInputSchema confirms a tool call
// missing a required argument is rejected before the backend is invoked.
func TestDispatchValidatesArgumentsAgainstInputSchema(t *testing.T) {
	backend := &scriptedBackend{results: []AgentResult{{Success: true}}, errs: []error{nil}}
	d := NewDispatcher(backend)

	_, err := d.Dispatch(context.Background(), ToolCall{Name: "ping", Arguments: map[string]any{}}, schemaToolDef(), NewRequestContext())
	require.Error(t, err)
	var verr *mtcerrors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, 0, backend.calls)
}

// TestDispatchAllowsValidArguments confirms arguments that satisfy the input
// schema reach the backend.
func TestDispatchAllowsValidArguments(t *testing.T) {
	backend := &scriptedBackend{results: []AgentResult{{Success: true}}, errs: []error{nil}}
	d := NewDispatcher(backend)

	result, err := d.Dispatch(context.Background(), ToolCall{Name: "ping", Arguments: map[string]any{"id": "42"}}, schemaToolDef(), NewRequestContext())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, backend.calls)
}

// TestDispatchArgumentValidationCanBeDisabled confirms
// WithArgumentValidation(false) skips the schema check.
func TestDispatchArgumentValidationCanBeDisabled(t *testing.T) {
	backend := &scriptedBackend{results: []AgentResult{{Success: true}}, errs: []error{nil}}
	d := NewDispatcher(backend, WithArgumentValidation(false))

	result, err := d.Dispatch(context.Background(), ToolCall{Name: "ping", Arguments: map[string]any{}}, schemaToolDef(), NewRequestContext())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, backend.calls)
}

type backendFunc func(ctx context.Context, agentType *AgentType, call ToolCall, reqCtx RequestContext) (AgentResult, error)

func (f backendFunc) Invoke(ctx context.Context, agentType *AgentType, call ToolCall, reqCtx RequestContext) (AgentResult, error) {
	return f(ctx, agentType, call, reqCtx)
}
