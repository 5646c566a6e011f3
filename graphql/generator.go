package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/magictunnel/magictunnel/capability"
)

// Generator implements capability.Generator for GraphQL schemas, accepting
// either raw SDL or introspection JSON and producing a capability file of
// one tool per non-skipped operation.
type Generator struct {
	Options EmitOptions
}

// NewGenerator constructs a Generator with the given emission options.
func NewGenerator(opts EmitOptions) *Generator {
	return &Generator{Options: opts}
}

// Name identifies this generator to the registry.
func (g *Generator) Name() string { return "graphql" }

// Description summarizes what this generator produces tools from.
func (g *Generator) Description() string {
	return "Generates MCP tool capabilities from a GraphQL SDL document or introspection query result"
}

// SupportedExtensions lists the file extensions this generator recognizes.
func (g *Generator) SupportedExtensions() []string {
	return []string{".graphql", ".gql", ".graphqls", ".json"}
}

// contentFormat names the sniffed shape of a generator's input content.
type contentFormat string

const (
	formatSDL  contentFormat = "sdl"
	formatJSON contentFormat = "json"
)

// detectContentFormat sniffs content the same way the broader registry's
// generators detect format before dispatch: a leading `{` or `[` (after
// whitespace) indicates JSON (introspection), anything else is treated as
// SDL text.
func detectContentFormat(content []byte) contentFormat {
	trimmed := bytes.TrimLeft(content, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return formatJSON
	}
	return formatSDL
}

// GenerateFromContent runs the full GraphQL -> capability pipeline: parse
// (SDL directly, or introspection JSON reconstructed to SDL first),
// validate, and emit tool descriptors, then wrap them into a
// capability.CapabilityFile.
func (g *Generator) GenerateFromContent(ctx context.Context, content []byte) (*capability.CapabilityFile, error) {
	sdl := string(content)
	if detectContentFormat(content) == formatJSON {
		reconstructed, err := SDLFromIntrospection(content)
		if err != nil {
			return nil, fmt.Errorf("graphql: reconstruct SDL from introspection: %w", err)
		}
		sdl = reconstructed
	}

	schema, err := Parse(sdl)
	if err != nil {
		return nil, fmt.Errorf("graphql: parse schema: %w", err)
	}

	if _, err := Validate(schema); err != nil {
		return nil, err
	}

	descriptors := EmitTools(schema, g.Options)

	tools := make([]capability.ToolDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		if err := selfValidateJSONSchema(d.InputSchema); err != nil {
			return nil, fmt.Errorf("graphql: generated input schema for tool %q is invalid: %w", d.Name, err)
		}
		tools = append(tools, capability.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
			Routing: capability.RoutingConfig{
				RoutingType: d.RoutingType,
				Config:      d.Routing,
			},
			Annotations: d.Annotations,
			Hidden:      false,
			Enabled:     true,
		})
	}

	name := "graphql-tools"
	if schema.QueryTypeName != "" {
		name = strings.ToLower(schema.QueryTypeName) + "-tools"
	}

	return &capability.CapabilityFile{
		Metadata: capability.FileMetadata{
			Name:        name,
			Description: g.Description(),
		},
		Tools: tools,
	}, nil
}

// selfValidateJSONSchema confirms a generated input schema document is
// itself a syntactically valid JSON Schema by compiling it.
func selfValidateJSONSchema(schemaDoc map[string]any) error {
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	if _, err := c.Compile("schema.json"); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return nil
}

var _ capability.Generator = (*Generator)(nil)
