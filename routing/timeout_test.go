package routing

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestTimeoutConfigDefaults(t *testing.T) {
	cfg := NewDefaultTimeoutConfig()
	require.Equal(t, 30, cfg.GetTimeout(KindHTTP, nil))
	require.Equal(t, 60, cfg.GetTimeout(KindLLM, nil))
	require.Equal(t, 30, cfg.GetTimeout(KindGRPC, nil)) // kind with no per-agent entry falls to default
}

func TestTimeoutConfigToolOverrideWins(t *testing.T) {
	cfg := NewDefaultTimeoutConfig()
	override := 5
	require.Equal(t, 5, cfg.GetTimeout(KindHTTP, &override))
}

func TestTimeoutConfigOverrideClampedToMax(t *testing.T) {
	cfg := NewDefaultTimeoutConfig()
	override := 10_000
	require.Equal(t, cfg.MaxTimeoutSecs, cfg.GetTimeout(KindHTTP, &override))
}

func TestTimeoutConfigValidate(t *testing.T) {
	cfg := NewDefaultTimeoutConfig()
	require.NoError(t, cfg.Validate())

	cfg.DefaultTimeoutSecs = 0
	require.Error(t, cfg.Validate())

	cfg = NewDefaultTimeoutConfig()
	cfg.DefaultTimeoutSecs = cfg.MaxTimeoutSecs + 1
	require.Error(t, cfg.Validate())

	cfg = NewDefaultTimeoutConfig()
	cfg.PerAgentType[KindHTTP] = 0
	require.Error(t, cfg.Validate())
}

func TestTimeoutConfigBuilder(t *testing.T) {
	cfg, err := NewTimeoutConfigBuilder().
		DefaultTimeout(20).
		MaxTimeout(120).
		HTTPTimeout(15).
		LLMTimeout(90). // under the 120 max, so kept as is
		Build()
	require.NoError(t, err)
	require.Equal(t, 15, cfg.GetTimeout(KindHTTP, nil))
	require.Equal(t, 90, cfg.GetTimeout(KindLLM, nil))

	_, err = NewTimeoutConfigBuilder().DefaultTimeout(0).Build()
	require.Error(t, err)
}

// TestTimeoutResolutionProperty verifies T-timeout-1: for every variant and
// tool override, the resolved timeout is never zero, honors the override
// when present (clamped to max), and is always <= max.
func TestTimeoutResolutionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	kinds := []AgentKind{KindSubprocess, KindHTTP, KindLLM, KindWebSocket, KindDatabase, KindGRPC, KindSSE, KindGraphQL, KindExternalMCP}

	properties.Property("resolved timeout is always in (0, max]", prop.ForAll(
		func(kindIdx int, override int, hasOverride bool) bool {
			cfg := NewDefaultTimeoutConfig()
			kind := kinds[kindIdx%len(kinds)]

			var ov *int
			if hasOverride && override > 0 {
				ov = &override
			}
			resolved := cfg.GetTimeout(kind, ov)
			if resolved <= 0 || resolved > cfg.MaxTimeoutSecs {
				return false
			}
			if ov != nil {
				want := *ov
				if want > cfg.MaxTimeoutSecs {
					want = cfg.MaxTimeoutSecs
				}
				return resolved == want
			}
			return true
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 10_000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
