package routing

import "github.com/magictunnel/magictunnel/mtcerrors"

// Default timeout values, in seconds, matching the original router's
// per-agent-type defaults.
const (
	defaultSubprocessTimeout = 30
	defaultHTTPTimeout       = 30
	defaultWebSocketTimeout  = 30
	defaultDatabaseTimeout   = 30
	defaultLLMTimeout        = 60
	defaultTimeout           = 30
	defaultMaxTimeout        = 300
)

// TimeoutConfig resolves the per-call timeout applied by the dispatcher.
// Priority, highest first: a tool-level override, the per-agent-type entry,
// then the global default. Every resolved value is clamped to
// MaxTimeoutSecs.
type TimeoutConfig struct {
	DefaultTimeoutSecs int
	PerAgentType       map[AgentKind]int
	MaxTimeoutSecs     int
}

// NewDefaultTimeoutConfig returns the conventional defaults: subprocess,
// http, websocket, and database at 30s, llm at 60s, a 30s fallback default,
// and a 300s ceiling.
func NewDefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		DefaultTimeoutSecs: defaultTimeout,
		PerAgentType: map[AgentKind]int{
			KindSubprocess: defaultSubprocessTimeout,
			KindHTTP:       defaultHTTPTimeout,
			KindWebSocket:  defaultWebSocketTimeout,
			KindDatabase:   defaultDatabaseTimeout,
			KindLLM:        defaultLLMTimeout,
		},
		MaxTimeoutSecs: defaultMaxTimeout,
	}
}

// SetAgentTimeout installs a per-agent-type timeout, capping it at
// MaxTimeoutSecs.
func (c *TimeoutConfig) SetAgentTimeout(kind AgentKind, seconds int) {
	if seconds > c.MaxTimeoutSecs {
		seconds = c.MaxTimeoutSecs
	}
	if c.PerAgentType == nil {
		c.PerAgentType = make(map[AgentKind]int)
	}
	c.PerAgentType[kind] = seconds
}

// GetTimeout resolves the timeout for kind, honoring an optional tool-level
// override. The result is capped at MaxTimeoutSecs; it is > 0 whenever the
// config passes Validate and any tool override is positive, since values at
// or below zero are returned unchanged.
func (c *TimeoutConfig) GetTimeout(kind AgentKind, toolOverride *int) int {
	if toolOverride != nil {
		return clamp(*toolOverride, c.MaxTimeoutSecs)
	}
	if v, ok := c.PerAgentType[kind]; ok {
		return clamp(v, c.MaxTimeoutSecs)
	}
	return clamp(c.DefaultTimeoutSecs, c.MaxTimeoutSecs)
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	return v
}

// Validate rejects a configuration with a zero default or max timeout, a
// default exceeding the max, or any per-agent-type entry that is zero or
// exceeds the max.
func (c *TimeoutConfig) Validate() error {
	if c.DefaultTimeoutSecs <= 0 {
		return &mtcerrors.ConfigError{Field: "default_timeout_secs", Reason: "must be greater than zero"}
	}
	if c.MaxTimeoutSecs <= 0 {
		return &mtcerrors.ConfigError{Field: "max_timeout_secs", Reason: "must be greater than zero"}
	}
	if c.DefaultTimeoutSecs > c.MaxTimeoutSecs {
		return &mtcerrors.ConfigError{Field: "default_timeout_secs", Reason: "exceeds max_timeout_secs"}
	}
	for kind, secs := range c.PerAgentType {
		if secs <= 0 {
			return &mtcerrors.ConfigError{Field: "per_agent_type." + string(kind), Reason: "must be greater than zero"}
		}
		if secs > c.MaxTimeoutSecs {
			return &mtcerrors.ConfigError{Field: "per_agent_type." + string(kind), Reason: "exceeds max_timeout_secs"}
		}
	}
	return nil
}

// TimeoutConfigBuilder provides a fluent API for constructing a
// TimeoutConfig, mirroring the original router's per-agent-type convenience
// setters.
type TimeoutConfigBuilder struct {
	cfg *TimeoutConfig
}

// NewTimeoutConfigBuilder starts from the conventional defaults.
func NewTimeoutConfigBuilder() *TimeoutConfigBuilder {
	return &TimeoutConfigBuilder{cfg: NewDefaultTimeoutConfig()}
}

// DefaultTimeout sets the fallback timeout.
func (b *TimeoutConfigBuilder) DefaultTimeout(seconds int) *TimeoutConfigBuilder {
	b.cfg.DefaultTimeoutSecs = seconds
	return b
}

// MaxTimeout sets the ceiling every resolved timeout is clamped to.
func (b *TimeoutConfigBuilder) MaxTimeout(seconds int) *TimeoutConfigBuilder {
	b.cfg.MaxTimeoutSecs = seconds
	return b
}

// SubprocessTimeout sets the subprocess-variant timeout.
func (b *TimeoutConfigBuilder) SubprocessTimeout(seconds int) *TimeoutConfigBuilder {
	b.cfg.SetAgentTimeout(KindSubprocess, seconds)
	return b
}

// HTTPTimeout sets the http-variant timeout.
func (b *TimeoutConfigBuilder) HTTPTimeout(seconds int) *TimeoutConfigBuilder {
	b.cfg.SetAgentTimeout(KindHTTP, seconds)
	return b
}

// LLMTimeout sets the llm-variant timeout.
func (b *TimeoutConfigBuilder) LLMTimeout(seconds int) *TimeoutConfigBuilder {
	b.cfg.SetAgentTimeout(KindLLM, seconds)
	return b
}

// WebSocketTimeout sets the websocket-variant timeout.
func (b *TimeoutConfigBuilder) WebSocketTimeout(seconds int) *TimeoutConfigBuilder {
	b.cfg.SetAgentTimeout(KindWebSocket, seconds)
	return b
}

// DatabaseTimeout sets the database-variant timeout.
func (b *TimeoutConfigBuilder) DatabaseTimeout(seconds int) *TimeoutConfigBuilder {
	b.cfg.SetAgentTimeout(KindDatabase, seconds)
	return b
}

// AgentTimeout sets the timeout for an arbitrary agent kind, for variants
// without a dedicated convenience setter (grpc, sse, graphql, external_mcp).
func (b *TimeoutConfigBuilder) AgentTimeout(kind AgentKind, seconds int) *TimeoutConfigBuilder {
	b.cfg.SetAgentTimeout(kind, seconds)
	return b
}

// Build validates and returns the constructed TimeoutConfig.
func (b *TimeoutConfigBuilder) Build() (*TimeoutConfig, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return b.cfg, nil
}
