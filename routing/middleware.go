package routing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/magictunnel/magictunnel/mtcerrors"
	"github.com/magictunnel/magictunnel/telemetry"
)

// MiddlewareContext is passed to every observer hook invoked around a single
// dispatch call. The same instance flows through before/after/on_error.
type MiddlewareContext struct {
	ExecutionID string
	ToolCall    ToolCall
	AgentType   *AgentType
	StartTime   time.Time
	Metadata    map[string]any
}

// NewMiddlewareContext builds a context with a fresh execution id and the
// current time as start time.
func NewMiddlewareContext(call ToolCall, agentType *AgentType) *MiddlewareContext {
	return &MiddlewareContext{
		ExecutionID: uuid.NewString(),
		ToolCall:    call,
		AgentType:   agentType,
		StartTime:   time.Now(),
		Metadata:    make(map[string]any),
	}
}

// Elapsed returns the time since StartTime.
func (c *MiddlewareContext) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}

// AddMetadata records a key/value pair on the context's metadata map.
func (c *MiddlewareContext) AddMetadata(key string, value any) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
}

// AgentTypeName returns the string name of the context's agent type, or ""
// if none is set.
func (c *MiddlewareContext) AgentTypeName() string {
	if c.AgentType == nil {
		return ""
	}
	return c.AgentType.Kind.TypeName()
}

// Middleware is an observer invoked around a dispatch call. before_execution
// runs in insertion order; after_execution and on_error run in reverse
// order. A middleware's errors are caught by the chain and never propagate
// to the caller.
type Middleware interface {
	BeforeExecution(ctx context.Context, mc *MiddlewareContext) error
	AfterExecution(ctx context.Context, mc *MiddlewareContext, result AgentResult) error
	OnError(ctx context.Context, mc *MiddlewareContext, err error) error
}

// MiddlewareChain runs a set of observers with stack discipline: before in
// insertion order, after/on_error in reverse insertion order.
type MiddlewareChain struct {
	observers []Middleware
	logger    telemetry.Logger
}

// NewMiddlewareChain returns an empty chain. A nil logger is replaced by a
// no-op logger.
func NewMiddlewareChain(logger telemetry.Logger) *MiddlewareChain {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &MiddlewareChain{logger: logger}
}

// Use appends an observer to the chain.
func (c *MiddlewareChain) Use(m Middleware) *MiddlewareChain {
	c.observers = append(c.observers, m)
	return c
}

// BeforeExecution invokes every observer's BeforeExecution hook in insertion
// order. Observer errors are logged and swallowed.
func (c *MiddlewareChain) BeforeExecution(ctx context.Context, mc *MiddlewareContext) {
	for _, obs := range c.observers {
		if err := obs.BeforeExecution(ctx, mc); err != nil {
			c.logger.Warn(ctx, "middleware before_execution failed", "execution_id", mc.ExecutionID, "error", err.Error())
		}
	}
}

// AfterExecution invokes every observer's AfterExecution hook in reverse
// insertion order. Observer errors are logged and swallowed.
func (c *MiddlewareChain) AfterExecution(ctx context.Context, mc *MiddlewareContext, result AgentResult) {
	for i := len(c.observers) - 1; i >= 0; i-- {
		if err := c.observers[i].AfterExecution(ctx, mc, result); err != nil {
			c.logger.Warn(ctx, "middleware after_execution failed", "execution_id", mc.ExecutionID, "error", err.Error())
		}
	}
}

// OnError invokes every observer's OnError hook in reverse insertion order.
// Observer errors are logged and swallowed.
func (c *MiddlewareChain) OnError(ctx context.Context, mc *MiddlewareContext, callErr error) {
	for i := len(c.observers) - 1; i >= 0; i-- {
		if err := c.observers[i].OnError(ctx, mc, callErr); err != nil {
			c.logger.Warn(ctx, "middleware on_error failed", "execution_id", mc.ExecutionID, "error", err.Error())
		}
	}
}

// LoggingMiddleware emits structured records at before/after/error time.
type LoggingMiddleware struct {
	Logger    telemetry.Logger
	LogData   bool
	LogTiming bool
}

// NewLoggingMiddleware returns a LoggingMiddleware. A nil logger is replaced
// by a no-op logger.
func NewLoggingMiddleware(logger telemetry.Logger, logData, logTiming bool) *LoggingMiddleware {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &LoggingMiddleware{Logger: logger, LogData: logData, LogTiming: logTiming}
}

// BeforeExecution logs the start of a dispatch call.
func (m *LoggingMiddleware) BeforeExecution(ctx context.Context, mc *MiddlewareContext) error {
	kvs := []any{"execution_id", mc.ExecutionID, "tool", mc.ToolCall.Name, "agent_type", mc.AgentTypeName()}
	if m.LogData {
		kvs = append(kvs, "arguments", mc.ToolCall.Arguments)
	}
	m.Logger.Info(ctx, "dispatch started", kvs...)
	return nil
}

// AfterExecution logs the successful completion of a dispatch call.
func (m *LoggingMiddleware) AfterExecution(ctx context.Context, mc *MiddlewareContext, result AgentResult) error {
	kvs := []any{"execution_id", mc.ExecutionID, "tool", mc.ToolCall.Name, "agent_type", mc.AgentTypeName(), "success", result.Success}
	if m.LogTiming {
		kvs = append(kvs, "elapsed_ms", mc.Elapsed().Milliseconds())
	}
	if m.LogData {
		kvs = append(kvs, "data", result.Data)
	}
	m.Logger.Info(ctx, "dispatch completed", kvs...)
	return nil
}

// OnError logs a dispatch failure, including its classified error bucket.
func (m *LoggingMiddleware) OnError(ctx context.Context, mc *MiddlewareContext, callErr error) error {
	kvs := []any{
		"execution_id", mc.ExecutionID,
		"tool", mc.ToolCall.Name,
		"agent_type", mc.AgentTypeName(),
		"error_bucket", string(ErrorBucketFor(callErr)),
		"error", callErr.Error(),
	}
	if m.LogTiming {
		kvs = append(kvs, "elapsed_ms", mc.Elapsed().Milliseconds())
	}
	switch ErrorBucketFor(callErr) {
	case mtcerrors.BucketAuthentication, mtcerrors.BucketConfiguration:
		m.Logger.Error(ctx, "dispatch failed", kvs...)
	default:
		m.Logger.Warn(ctx, "dispatch failed", kvs...)
	}
	return nil
}

// runningMean tracks a Welford-style incremental mean and sample count so
// metrics never need to retain per-call samples.
type runningMean struct {
	count int64
	mean  float64
}

func (m *runningMean) add(value float64) {
	m.count++
	m.mean += (value - m.mean) / float64(m.count)
}

// agentTypeCounters holds the per-agent-type metrics bucket.
type agentTypeCounters struct {
	requests  int64
	successes int64
	errors    int64
	timeouts  int64
	retries   int64
	latency   runningMean
}

// ToolMetrics is the per-tool metrics snapshot.
type ToolMetrics struct {
	Requests      int64
	Successes     int64
	Errors        int64
	AvgResponseMs float64
	LastExecution time.Time
}

type toolCounters struct {
	requests      int64
	successes     int64
	errors        int64
	latency       runningMean
	lastExecution time.Time
}

// MetricsMiddleware maintains in-process counters keyed by agent type and by
// tool name, using a Welford-style running mean for response times instead
// of retaining every sample.
type MetricsMiddleware struct {
	mu        sync.Mutex
	byAgent   map[string]*agentTypeCounters
	byTool    map[string]*toolCounters
	total     int64
	successes int64
	errors    int64
	timeouts  int64
	retries   int64
}

// NewMetricsMiddleware returns an empty MetricsMiddleware.
func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{
		byAgent: make(map[string]*agentTypeCounters),
		byTool:  make(map[string]*toolCounters),
	}
}

func (m *MetricsMiddleware) agentBucket(name string) *agentTypeCounters {
	b, ok := m.byAgent[name]
	if !ok {
		b = &agentTypeCounters{}
		m.byAgent[name] = b
	}
	return b
}

func (m *MetricsMiddleware) toolBucket(name string) *toolCounters {
	b, ok := m.byTool[name]
	if !ok {
		b = &toolCounters{}
		m.byTool[name] = b
	}
	return b
}

// BeforeExecution records a request against the agent-type and tool
// buckets.
func (m *MetricsMiddleware) BeforeExecution(_ context.Context, mc *MiddlewareContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.agentBucket(mc.AgentTypeName()).requests++
	m.toolBucket(mc.ToolCall.Name).requests++
	return nil
}

// AfterExecution records a successful completion and its latency.
func (m *MetricsMiddleware) AfterExecution(_ context.Context, mc *MiddlewareContext, result AgentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	elapsedMs := float64(mc.Elapsed().Milliseconds())
	if result.Success {
		m.successes++
		ab := m.agentBucket(mc.AgentTypeName())
		ab.successes++
		ab.latency.add(elapsedMs)
		tb := m.toolBucket(mc.ToolCall.Name)
		tb.successes++
		tb.latency.add(elapsedMs)
		tb.lastExecution = time.Now()
	}
	return nil
}

// OnError records a failure, bucketing timeouts separately. Retries are not
// counted here; the dispatcher reports them through TrackRetry.
func (m *MetricsMiddleware) OnError(_ context.Context, mc *MiddlewareContext, callErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
	ab := m.agentBucket(mc.AgentTypeName())
	ab.errors++
	tb := m.toolBucket(mc.ToolCall.Name)
	tb.errors++
	tb.lastExecution = time.Now()
	if ErrorBucketFor(callErr) == mtcerrors.BucketTimeout {
		m.timeouts++
		ab.timeouts++
	}
	return nil
}

// TrackRetry increments the total retry counter and the one for
// agentTypeName; toolName is accepted but no per-tool retry count is kept.
// The dispatcher calls this once per retried attempt (not per final outcome).
func (m *MetricsMiddleware) TrackRetry(agentTypeName, toolName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
	m.agentBucket(agentTypeName).retries++
}

// Reset clears every counter back to zero.
func (m *MetricsMiddleware) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byAgent = make(map[string]*agentTypeCounters)
	m.byTool = make(map[string]*toolCounters)
	m.total, m.successes, m.errors, m.timeouts, m.retries = 0, 0, 0, 0, 0
}

// Snapshot returns a JSON-serializable view of the current metrics, matching
// the summary/by_agent_type/by_tool shape.
func (m *MetricsMiddleware) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	successRate := 0.0
	if m.total > 0 {
		successRate = float64(m.successes) / float64(m.total)
	}

	byAgentType := make(map[string]any, len(m.byAgent))
	for name, b := range m.byAgent {
		rate := 0.0
		if b.requests > 0 {
			rate = float64(b.successes) / float64(b.requests)
		}
		byAgentType[name] = map[string]any{
			"request_counts":        b.requests,
			"success_counts":        b.successes,
			"error_counts":          b.errors,
			"timeout_counts":        b.timeouts,
			"retry_counts":          b.retries,
			"success_rates":         rate,
			"avg_response_times_ms": b.latency.mean,
		}
	}

	byTool := make(map[string]any, len(m.byTool))
	for name, b := range m.byTool {
		byTool[name] = map[string]any{
			"requests":             b.requests,
			"successes":            b.successes,
			"errors":               b.errors,
			"avg_response_time_ms": b.latency.mean,
			"last_execution":       b.lastExecution,
		}
	}

	return map[string]any{
		"summary": map[string]any{
			"total_requests":       m.total,
			"total_successes":      m.successes,
			"total_errors":         m.errors,
			"total_timeouts":       m.timeouts,
			"total_retries":        m.retries,
			"overall_success_rate": successRate,
		},
		"by_agent_type": byAgentType,
		"by_tool":       byTool,
	}
}
