package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magictunnel/magictunnel/capability"
)

func TestParseAgentTypeHTTP(t *testing.T) {
	rc := capability.RoutingConfig{
		RoutingType: "http",
		Config: map[string]any{
			"method": "GET",
			"url":    "https://x/ping",
		},
	}
	agent, err := ParseAgentType(rc)
	require.NoError(t, err)
	require.Equal(t, KindHTTP, agent.Kind)
	require.Equal(t, "GET", agent.HTTP.Method)
	require.Equal(t, "https://x/ping", agent.HTTP.URL)
	require.Nil(t, agent.Timeout())
}

func TestParseAgentTypeMissingRequiredField(t *testing.T) {
	rc := capability.RoutingConfig{
		RoutingType: "http",
		Config:      map[string]any{"method": "GET"},
	}
	_, err := ParseAgentType(rc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "url")
}

func TestParseAgentTypeUnknownRoutingType(t *testing.T) {
	rc := capability.RoutingConfig{RoutingType: "fax", Config: map[string]any{}}
	_, err := ParseAgentType(rc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fax")
}

func TestParseAgentTypeSubprocessWithArgsAndEnv(t *testing.T) {
	rc := capability.RoutingConfig{
		RoutingType: "subprocess",
		Config: map[string]any{
			"command": "/bin/echo",
			"args":    []any{"hello", "world"},
			"env":     map[string]any{"FOO": "bar"},
			"timeout": 15,
		},
	}
	agent, err := ParseAgentType(rc)
	require.NoError(t, err)
	require.Equal(t, []string{"hello", "world"}, agent.Subprocess.Args)
	require.Equal(t, "bar", agent.Subprocess.Env["FOO"])
	require.NotNil(t, agent.Timeout())
	require.Equal(t, 15, *agent.Timeout())
}

func TestSetTimeoutRoundTrip(t *testing.T) {
	agent := &AgentType{Kind: KindGRPC, GRPC: &GRPCAgent{Endpoint: "e", Service: "s", Method: "m"}}
	require.Nil(t, agent.Timeout())
	agent.SetTimeout(42)
	require.Equal(t, 42, *agent.Timeout())
}

func TestSetTimeoutSmartDiscoveryNoop(t *testing.T) {
	agent := &AgentType{Kind: KindSmartDiscovery, SmartDiscovery: &SmartDiscoveryAgent{Enabled: true}}
	agent.SetTimeout(10)
	require.Nil(t, agent.Timeout())
}
