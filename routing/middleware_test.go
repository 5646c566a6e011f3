package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magictunnel/magictunnel/mtcerrors"
)

// orderRecorder is a test Middleware that appends its label to a shared
// slice at each hook, to verify stack-discipline ordering.
type orderRecorder struct {
	label string
	trace *[]string
}

func (o *orderRecorder) BeforeExecution(context.Context, *MiddlewareContext) error {
	*o.trace = append(*o.trace, "before:"+o.label)
	return nil
}

func (o *orderRecorder) AfterExecution(context.Context, *MiddlewareContext, AgentResult) error {
	*o.trace = append(*o.trace, "after:"+o.label)
	return nil
}

func (o *orderRecorder) OnError(context.Context, *MiddlewareContext, error) error {
	*o.trace = append(*o.trace, "error:"+o.label)
	return nil
}

func TestMiddlewareChainOrdering(t *testing.T) {
	var trace []string
	chain := NewMiddlewareChain(nil).
		Use(&orderRecorder{label: "a", trace: &trace}).
		Use(&orderRecorder{label: "b", trace: &trace})

	mc := NewMiddlewareContext(ToolCall{Name: "ping"}, &AgentType{Kind: KindHTTP, HTTP: &HTTPAgent{}})
	chain.BeforeExecution(context.Background(), mc)
	chain.AfterExecution(context.Background(), mc, AgentResult{Success: true})

	require.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, trace)
}

// failingMiddleware always returns an error from every hook, to verify
// T-middleware-2: observer failures never surface to the caller.
type failingMiddleware struct{}

func (failingMiddleware) BeforeExecution(context.Context, *MiddlewareContext) error {
	return mtcerrors.NewRoutingError("observer exploded")
}
func (failingMiddleware) AfterExecution(context.Context, *MiddlewareContext, AgentResult) error {
	return mtcerrors.NewRoutingError("observer exploded")
}
func (failingMiddleware) OnError(context.Context, *MiddlewareContext, error) error {
	return mtcerrors.NewRoutingError("observer exploded")
}

func TestMiddlewareChainSwallowsObserverErrors(t *testing.T) {
	chain := NewMiddlewareChain(nil).Use(failingMiddleware{})
	mc := NewMiddlewareContext(ToolCall{Name: "ping"}, &AgentType{Kind: KindHTTP, HTTP: &HTTPAgent{}})

	require.NotPanics(t, func() {
		chain.BeforeExecution(context.Background(), mc)
		chain.AfterExecution(context.Background(), mc, AgentResult{Success: true})
		chain.OnError(context.Background(), mc, mtcerrors.NewRoutingError("boom"))
	})
}

func TestMetricsMiddlewareSnapshot(t *testing.T) {
	mm := NewMetricsMiddleware()
	mc := NewMiddlewareContext(ToolCall{Name: "ping"}, &AgentType{Kind: KindHTTP, HTTP: &HTTPAgent{}})

	require.NoError(t, mm.BeforeExecution(context.Background(), mc))
	require.NoError(t, mm.AfterExecution(context.Background(), mc, AgentResult{Success: true}))

	mc2 := NewMiddlewareContext(ToolCall{Name: "ping"}, &AgentType{Kind: KindHTTP, HTTP: &HTTPAgent{}})
	require.NoError(t, mm.BeforeExecution(context.Background(), mc2))
	require.NoError(t, mm.OnError(context.Background(), mc2, mtcerrors.NewTypedRoutingError("HTTP 503", mtcerrors.BucketGeneral, true)))

	snap := mm.Snapshot()
	summary := snap["summary"].(map[string]any)
	require.EqualValues(t, 2, summary["total_requests"])
	require.EqualValues(t, 1, summary["total_successes"])
	require.EqualValues(t, 1, summary["total_errors"])

	byTool := snap["by_tool"].(map[string]any)
	pingMetrics := byTool["ping"].(map[string]any)
	require.EqualValues(t, 2, pingMetrics["requests"])
}

func TestMetricsMiddlewareReset(t *testing.T) {
	mm := NewMetricsMiddleware()
	mc := NewMiddlewareContext(ToolCall{Name: "ping"}, &AgentType{Kind: KindHTTP, HTTP: &HTTPAgent{}})
	require.NoError(t, mm.BeforeExecution(context.Background(), mc))
	mm.Reset()
	snap := mm.Snapshot()
	require.EqualValues(t, 0, snap["summary"].(map[string]any)["total_requests"])
}

func TestMetricsMiddlewareTrackRetry(t *testing.T) {
	mm := NewMetricsMiddleware()
	mm.TrackRetry("http", "ping")
	mm.TrackRetry("http", "ping")
	snap := mm.Snapshot()
	byAgent := snap["by_agent_type"].(map[string]any)
	httpMetrics := byAgent["http"].(map[string]any)
	require.EqualValues(t, 2, httpMetrics["retry_counts"])
}
