package capability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	f := &CapabilityFile{
		Metadata: FileMetadata{
			Name:        "demo",
			Description: "demo capability file",
			Version:     "1.0.0",
			Tags:        []string{"graphql", "generated"},
		},
		Tools: []ToolDefinition{
			{
				Name:        "getUser",
				Description: "fetch a user",
				InputSchema: map[string]any{
					"type":       "object",
					"properties": map[string]any{"id": map[string]any{"type": "string"}},
					"required":   []any{"id"},
				},
				Routing: RoutingConfig{
					RoutingType: "graphql",
					Config:      map[string]any{"endpoint": "https://api.example.com/graphql"},
				},
				Annotations: map[string]string{"deprecated": "false"},
				Hidden:      false,
				Enabled:     true,
			},
		},
	}

	data, err := Marshal(f)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, f.Metadata.Name, got.Metadata.Name)
	require.Equal(t, f.Metadata.Tags, got.Metadata.Tags)
	require.Len(t, got.Tools, 1)
	require.Equal(t, "getUser", got.Tools[0].Name)
	require.Equal(t, "graphql", got.Tools[0].Routing.RoutingType)
}

func TestUnmarshalInvalidYAML(t *testing.T) {
	_, err := Unmarshal([]byte("not: valid: yaml: [["))
	require.Error(t, err)
}
