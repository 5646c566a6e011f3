// Package routing implements the MagicTunnel dispatcher: parsing a tool's
// routing configuration into a typed agent descriptor, resolving timeouts,
// retrying failed invocations under a per-agent-type policy, running an
// observer chain around each call, and returning a normalized AgentResult.
package routing

import (
	"context"
	"fmt"

	"github.com/magictunnel/magictunnel/capability"
	"github.com/magictunnel/magictunnel/mtcerrors"
)

// AgentKind names one of the ten supported backend variants.
type AgentKind string

const (
	KindSubprocess     AgentKind = "subprocess"
	KindHTTP           AgentKind = "http"
	KindLLM            AgentKind = "llm"
	KindWebSocket      AgentKind = "websocket"
	KindDatabase       AgentKind = "database"
	KindGRPC           AgentKind = "grpc"
	KindSSE            AgentKind = "sse"
	KindGraphQL        AgentKind = "graphql"
	KindExternalMCP    AgentKind = "external_mcp"
	KindSmartDiscovery AgentKind = "smart_discovery"
)

// SubprocessAgent invokes a local command.
type SubprocessAgent struct {
	Command string
	Args    []string
	Timeout *int
	Env     map[string]string
}

// HTTPAgent invokes an HTTP endpoint.
type HTTPAgent struct {
	Method  string
	URL     string
	Headers map[string]string
	Timeout *int
}

// LLMAgent invokes a model provider.
type LLMAgent struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  *int
}

// WebSocketAgent invokes a WebSocket peer.
type WebSocketAgent struct {
	URL     string
	Headers map[string]string
	Timeout *int
}

// DatabaseAgent runs a query against a configured database.
type DatabaseAgent struct {
	DBType           string
	ConnectionString string
	Query            string
	Timeout          *int
}

// GRPCAgent invokes a gRPC method.
type GRPCAgent struct {
	Endpoint    string
	Service     string
	Method      string
	Headers     map[string]string
	Timeout     *int
	RequestBody map[string]any
}

// SSEAgent subscribes to a server-sent-events stream.
type SSEAgent struct {
	URL         string
	Headers     map[string]string
	Timeout     *int
	MaxEvents   *int
	EventFilter string
}

// GraphQLAgent invokes a GraphQL endpoint.
type GraphQLAgent struct {
	Endpoint      string
	Query         string
	Variables     map[string]any
	Headers       map[string]string
	Timeout       *int
	OperationName string
}

// ExternalMCPAgent forwards the call to another MCP server.
type ExternalMCPAgent struct {
	ServerName      string
	ToolName        string
	Timeout         *int
	MappingMetadata map[string]any
}

// SmartDiscoveryAgent delegates tool selection to a discovery service.
type SmartDiscoveryAgent struct {
	Enabled bool
}

// AgentType is a tagged variant over the ten backend descriptors. Exactly
// one of the pointer fields matching Kind is non-nil.
type AgentType struct {
	Kind AgentKind

	Subprocess     *SubprocessAgent
	HTTP           *HTTPAgent
	LLM            *LLMAgent
	WebSocket      *WebSocketAgent
	Database       *DatabaseAgent
	GRPC           *GRPCAgent
	SSE            *SSEAgent
	GraphQL        *GraphQLAgent
	ExternalMCP    *ExternalMCPAgent
	SmartDiscovery *SmartDiscoveryAgent
}

// Timeout returns the variant's currently installed timeout, or nil if
// unset.
func (a *AgentType) Timeout() *int {
	switch a.Kind {
	case KindSubprocess:
		return a.Subprocess.Timeout
	case KindHTTP:
		return a.HTTP.Timeout
	case KindLLM:
		return a.LLM.Timeout
	case KindWebSocket:
		return a.WebSocket.Timeout
	case KindDatabase:
		return a.Database.Timeout
	case KindGRPC:
		return a.GRPC.Timeout
	case KindSSE:
		return a.SSE.Timeout
	case KindGraphQL:
		return a.GraphQL.Timeout
	case KindExternalMCP:
		return a.ExternalMCP.Timeout
	default:
		return nil
	}
}

// SetTimeout installs a resolved timeout (in seconds) onto the variant.
// SmartDiscovery carries no timeout field and is left untouched.
func (a *AgentType) SetTimeout(seconds int) {
	switch a.Kind {
	case KindSubprocess:
		a.Subprocess.Timeout = &seconds
	case KindHTTP:
		a.HTTP.Timeout = &seconds
	case KindLLM:
		a.LLM.Timeout = &seconds
	case KindWebSocket:
		a.WebSocket.Timeout = &seconds
	case KindDatabase:
		a.Database.Timeout = &seconds
	case KindGRPC:
		a.GRPC.Timeout = &seconds
	case KindSSE:
		a.SSE.Timeout = &seconds
	case KindGraphQL:
		a.GraphQL.Timeout = &seconds
	case KindExternalMCP:
		a.ExternalMCP.Timeout = &seconds
	}
}

// ParseAgentType constructs a typed AgentType from a RoutingConfig, failing
// with a *mtcerrors.ConfigError if routing_type is unknown or a required
// field is missing.
func ParseAgentType(rc capability.RoutingConfig) (*AgentType, error) {
	cfg := rc.Config
	switch AgentKind(rc.RoutingType) {
	case KindSubprocess:
		cmd, err := requireString(cfg, "command")
		if err != nil {
			return nil, err
		}
		args, _ := cfg["args"].([]any)
		return &AgentType{Kind: KindSubprocess, Subprocess: &SubprocessAgent{
			Command: cmd,
			Args:    toStringSlice(args),
			Timeout: optionalInt(cfg, "timeout"),
			Env:     toStringMap(cfg["env"]),
		}}, nil

	case KindHTTP:
		method, err := requireString(cfg, "method")
		if err != nil {
			return nil, err
		}
		url, err := requireString(cfg, "url")
		if err != nil {
			return nil, err
		}
		return &AgentType{Kind: KindHTTP, HTTP: &HTTPAgent{
			Method:  method,
			URL:     url,
			Headers: toStringMap(cfg["headers"]),
			Timeout: optionalInt(cfg, "timeout"),
		}}, nil

	case KindLLM:
		provider, err := requireString(cfg, "provider")
		if err != nil {
			return nil, err
		}
		model, err := requireString(cfg, "model")
		if err != nil {
			return nil, err
		}
		return &AgentType{Kind: KindLLM, LLM: &LLMAgent{
			Provider: provider,
			Model:    model,
			APIKey:   optionalString(cfg, "api_key"),
			BaseURL:  optionalString(cfg, "base_url"),
			Timeout:  optionalInt(cfg, "timeout"),
		}}, nil

	case KindWebSocket:
		url, err := requireString(cfg, "url")
		if err != nil {
			return nil, err
		}
		return &AgentType{Kind: KindWebSocket, WebSocket: &WebSocketAgent{
			URL:     url,
			Headers: toStringMap(cfg["headers"]),
			Timeout: optionalInt(cfg, "timeout"),
		}}, nil

	case KindDatabase:
		dbType, err := requireString(cfg, "db_type")
		if err != nil {
			return nil, err
		}
		connStr, err := requireString(cfg, "connection_string")
		if err != nil {
			return nil, err
		}
		query, err := requireString(cfg, "query")
		if err != nil {
			return nil, err
		}
		return &AgentType{Kind: KindDatabase, Database: &DatabaseAgent{
			DBType:           dbType,
			ConnectionString: connStr,
			Query:            query,
			Timeout:          optionalInt(cfg, "timeout"),
		}}, nil

	case KindGRPC:
		endpoint, err := requireString(cfg, "endpoint")
		if err != nil {
			return nil, err
		}
		service, err := requireString(cfg, "service")
		if err != nil {
			return nil, err
		}
		method, err := requireString(cfg, "method")
		if err != nil {
			return nil, err
		}
		body, _ := cfg["request_body"].(map[string]any)
		return &AgentType{Kind: KindGRPC, GRPC: &GRPCAgent{
			Endpoint:    endpoint,
			Service:     service,
			Method:      method,
			Headers:     toStringMap(cfg["headers"]),
			Timeout:     optionalInt(cfg, "timeout"),
			RequestBody: body,
		}}, nil

	case KindSSE:
		url, err := requireString(cfg, "url")
		if err != nil {
			return nil, err
		}
		return &AgentType{Kind: KindSSE, SSE: &SSEAgent{
			URL:         url,
			Headers:     toStringMap(cfg["headers"]),
			Timeout:     optionalInt(cfg, "timeout"),
			MaxEvents:   optionalInt(cfg, "max_events"),
			EventFilter: optionalString(cfg, "event_filter"),
		}}, nil

	case KindGraphQL:
		endpoint, err := requireString(cfg, "endpoint")
		if err != nil {
			return nil, err
		}
		vars, _ := cfg["variables"].(map[string]any)
		return &AgentType{Kind: KindGraphQL, GraphQL: &GraphQLAgent{
			Endpoint:      endpoint,
			Query:         optionalString(cfg, "query"),
			Variables:     vars,
			Headers:       toStringMap(cfg["headers"]),
			Timeout:       optionalInt(cfg, "timeout"),
			OperationName: optionalString(cfg, "operation_name"),
		}}, nil

	case KindExternalMCP:
		serverName, err := requireString(cfg, "server_name")
		if err != nil {
			return nil, err
		}
		toolName, err := requireString(cfg, "tool_name")
		if err != nil {
			return nil, err
		}
		meta, _ := cfg["mapping_metadata"].(map[string]any)
		return &AgentType{Kind: KindExternalMCP, ExternalMCP: &ExternalMCPAgent{
			ServerName:      serverName,
			ToolName:        toolName,
			Timeout:         optionalInt(cfg, "timeout"),
			MappingMetadata: meta,
		}}, nil

	case KindSmartDiscovery:
		enabled, _ := cfg["enabled"].(bool)
		return &AgentType{Kind: KindSmartDiscovery, SmartDiscovery: &SmartDiscoveryAgent{
			Enabled: enabled,
		}}, nil

	default:
		return nil, &mtcerrors.ConfigError{
			Field:  "routing_type",
			Reason: fmt.Sprintf("unknown routing type %q", rc.RoutingType),
		}
	}
}

// TypeName returns the canonical string name for an AgentKind, matching the
// routing_type values accepted by ParseAgentType.
func (k AgentKind) TypeName() string { return string(k) }

func requireString(cfg map[string]any, key string) (string, error) {
	v, ok := cfg[key]
	if !ok {
		return "", &mtcerrors.ConfigError{Field: key, Reason: "required field missing"}
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", &mtcerrors.ConfigError{Field: key, Reason: "required field missing or empty"}
	}
	return s, nil
}

func optionalString(cfg map[string]any, key string) string {
	s, _ := cfg[key].(string)
	return s
}

func optionalInt(cfg map[string]any, key string) *int {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	default:
		return nil
	}
}

func toStringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func toStringSlice(v []any) []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(v))
	for _, item := range v {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ToolCall is an invocation request produced by the MCP frontend. It is
// immutable within an execution.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// AgentResult is the normalized return from any backend invocation. Fatal
// agent errors materialize here rather than as exceptions.
type AgentResult struct {
	Success  bool
	Data     any
	Error    string
	Metadata map[string]any
}

// RequestContext flows sidelong through a dispatch call. The core never
// mutates it.
type RequestContext struct {
	ClientID    string
	SessionID   string
	AuthContext map[string]any
}

// NewRequestContext returns an empty RequestContext.
func NewRequestContext() RequestContext {
	return RequestContext{}
}

// WithClientID returns a copy of ctx with ClientID set.
func (c RequestContext) WithClientID(id string) RequestContext {
	c.ClientID = id
	return c
}

// WithSession returns a copy of ctx with SessionID set.
func (c RequestContext) WithSession(id string) RequestContext {
	c.SessionID = id
	return c
}

// WithAuthContext returns a copy of ctx with AuthContext set.
func (c RequestContext) WithAuthContext(auth map[string]any) RequestContext {
	c.AuthContext = auth
	return c
}

// BackendInvoker is satisfied by any concrete agent transport (HTTP client,
// gRPC stub, subprocess spawner, ...). The dispatcher only depends on this
// contract; it never constructs a concrete transport itself.
type BackendInvoker interface {
	Invoke(ctx context.Context, agentType *AgentType, call ToolCall, reqCtx RequestContext) (AgentResult, error)
}
