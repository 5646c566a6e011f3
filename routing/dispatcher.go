package routing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.opentelemetry.io/otel/codes"

	"github.com/magictunnel/magictunnel/capability"
	"github.com/magictunnel/magictunnel/mtcerrors"
	"github.com/magictunnel/magictunnel/telemetry"
)

// Dispatcher parses a tool's routing config into an agent descriptor,
// applies the resolved timeout, wraps the downstream call in retries and the
// middleware chain, and returns a normalized AgentResult. A single
// Dispatcher instance may serve arbitrarily many concurrent calls: it holds
// no per-call state beyond the MiddlewareContext each call constructs for
// itself.
type Dispatcher struct {
	Backend  BackendInvoker
	Timeouts *TimeoutConfig
	Retries  *RetryConfig
	Chain    *MiddlewareChain
	Tracer   telemetry.Tracer
	Logger   telemetry.Logger

	// ValidateArguments enables pre-dispatch validation of ToolCall.Arguments
	// against the tool's InputSchema, when that schema is non-empty. Errors
	// surface as a *mtcerrors.ValidationError before the backend is invoked.
	ValidateArguments bool
}

// NewDispatcher wires a Dispatcher from its dependencies. Nil Timeouts,
// Retries, Chain, Tracer, or Logger are replaced with sensible defaults.
// Argument validation against a tool's input schema is enabled by default
// and can be turned off with WithArgumentValidation(false).
func NewDispatcher(backend BackendInvoker, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		Backend:           backend,
		Timeouts:          NewDefaultTimeoutConfig(),
		Retries:           DefaultRetryConfig(),
		Chain:             NewMiddlewareChain(nil),
		Tracer:            telemetry.NewNoopTracer(),
		Logger:            telemetry.NewNoopLogger(),
		ValidateArguments: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatcherOption customizes a Dispatcher at construction time.
type DispatcherOption func(*Dispatcher)

// WithTimeouts overrides the dispatcher's timeout configuration.
func WithTimeouts(cfg *TimeoutConfig) DispatcherOption {
	return func(d *Dispatcher) { d.Timeouts = cfg }
}

// WithRetries overrides the dispatcher's retry configuration.
func WithRetries(cfg *RetryConfig) DispatcherOption {
	return func(d *Dispatcher) { d.Retries = cfg }
}

// WithMiddleware overrides the dispatcher's middleware chain.
func WithMiddleware(chain *MiddlewareChain) DispatcherOption {
	return func(d *Dispatcher) { d.Chain = chain }
}

// WithTracer overrides the dispatcher's tracer.
func WithTracer(t telemetry.Tracer) DispatcherOption {
	return func(d *Dispatcher) { d.Tracer = t }
}

// WithLogger overrides the dispatcher's logger.
func WithLogger(l telemetry.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.Logger = l }
}

// WithArgumentValidation toggles pre-dispatch validation of ToolCall.Arguments
// against the tool's InputSchema.
func WithArgumentValidation(enabled bool) DispatcherOption {
	return func(d *Dispatcher) { d.ValidateArguments = enabled }
}

// Dispatch runs the full dispatcher contract for a single tool invocation:
//
//  1. Parse tool_def.routing into an AgentType.
//  2. Resolve and install the timeout.
//  3. Build a MiddlewareContext.
//  4. Run chain.BeforeExecution (errors logged, not propagated).
//  5. Invoke the backend through the retry executor.
//  6. On success, run chain.AfterExecution and return the result.
//  7. On failure, run chain.OnError and return the error.
func (d *Dispatcher) Dispatch(ctx context.Context, call ToolCall, toolDef capability.ToolDefinition, reqCtx RequestContext) (AgentResult, error) {
	agentType, err := ParseAgentType(toolDef.Routing)
	if err != nil {
		return AgentResult{}, err
	}

	if d.ValidateArguments && len(toolDef.InputSchema) > 0 {
		if err := validateArguments(toolDef.InputSchema, call.Arguments); err != nil {
			return AgentResult{}, err
		}
	}

	toolOverride := agentType.Timeout()
	applied := d.Timeouts.GetTimeout(agentType.Kind, toolOverride)
	agentType.SetTimeout(applied)

	mc := NewMiddlewareContext(call, agentType)

	ctx, span := d.Tracer.Start(ctx, "routing.dispatch")
	defer span.End()
	span.AddEvent("dispatch.start", "execution_id", mc.ExecutionID, "tool", call.Name, "agent_type", agentType.Kind.TypeName())

	d.Chain.BeforeExecution(ctx, mc)

	policy := d.Retries.PolicyFor(agentType.Kind)
	executor := NewRetryExecutor(d.Logger)

	attempts := 0
	result, err := executor.ExecuteWithRetry(ctx, agentType.Kind.TypeName(), policy, func(ctx context.Context) (AgentResult, error) {
		if attempts > 0 {
			if mm, ok := findMetricsMiddleware(d.Chain); ok {
				mm.TrackRetry(agentType.Kind.TypeName(), call.Name)
			}
		}
		attempts++
		return d.Backend.Invoke(ctx, agentType, call, reqCtx)
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.Chain.OnError(ctx, mc, err)
		return AgentResult{Success: false, Error: err.Error()}, err
	}

	d.Chain.AfterExecution(ctx, mc, result)
	return result, nil
}

// validateArguments compiles schemaDoc as a JSON Schema and checks arguments
// against it, returning a *mtcerrors.ValidationError describing the first
// failure. A malformed schema itself is also reported as a ValidationError
// rather than panicking the dispatcher.
func validateArguments(schemaDoc map[string]any, arguments map[string]any) error {
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return &mtcerrors.ValidationError{Rule: "input-schema-malformed", Reason: err.Error()}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &mtcerrors.ValidationError{Rule: "input-schema-malformed", Reason: err.Error()}
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("tool-arguments.json", doc); err != nil {
		return &mtcerrors.ValidationError{Rule: "input-schema-malformed", Reason: err.Error()}
	}
	compiled, err := c.Compile("tool-arguments.json")
	if err != nil {
		return &mtcerrors.ValidationError{Rule: "input-schema-malformed", Reason: err.Error()}
	}

	if arguments == nil {
		arguments = map[string]any{}
	}
	if err := compiled.Validate(arguments); err != nil {
		return &mtcerrors.ValidationError{Rule: "input-schema-mismatch", Reason: fmt.Sprintf("tool call arguments do not match input schema: %s", err)}
	}
	return nil
}

// findMetricsMiddleware locates the first MetricsMiddleware registered on
// chain, if any, so the dispatcher can attribute retries to it without the
// chain exposing its full observer list.
func findMetricsMiddleware(chain *MiddlewareChain) (*MetricsMiddleware, bool) {
	for _, obs := range chain.observers {
		if mm, ok := obs.(*MetricsMiddleware); ok {
			return mm, true
		}
	}
	return nil, false
}
