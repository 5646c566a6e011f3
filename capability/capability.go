// Package capability defines the capability-file data model shared by every
// generator and by the routing dispatcher: CapabilityFile, FileMetadata, and
// ToolDefinition, along with their YAML (de)serialization.
package capability

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FileMetadata describes a capability file as a whole.
type FileMetadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Version     string   `yaml:"version,omitempty"`
	Author      string   `yaml:"author,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// RoutingConfig selects which AgentType variant the dispatcher constructs
// for a tool, plus the variant-specific fields under Config.
type RoutingConfig struct {
	RoutingType string         `yaml:"routing_type" json:"routing_type"`
	Config      map[string]any `yaml:"config" json:"config"`
}

// ToolDefinition is a single tool entry in a capability file.
type ToolDefinition struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	InputSchema map[string]any    `yaml:"input_schema"`
	Routing     RoutingConfig     `yaml:"routing"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
	Hidden      bool              `yaml:"hidden"`
	Enabled     bool              `yaml:"enabled"`
}

// CapabilityFile is the document produced by a generator and consumed by the
// dispatcher: metadata plus the list of tools it describes.
type CapabilityFile struct {
	Metadata FileMetadata     `yaml:"metadata"`
	Tools    []ToolDefinition `yaml:"tools"`
}

// Marshal serializes a capability file to its canonical YAML form.
func Marshal(f *CapabilityFile) ([]byte, error) {
	return yaml.Marshal(f)
}

// Unmarshal parses a capability file from YAML.
func Unmarshal(data []byte) (*CapabilityFile, error) {
	var f CapabilityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("capability: unmarshal: %w", err)
	}
	return &f, nil
}

// Generator is implemented by each capability generator (GraphQL, and
// eventually OpenAPI/gRPC generators outside this module's scope). It mirrors
// the uniform front-end every generator presents regardless of source
// schema format.
type Generator interface {
	// GenerateFromContent parses raw schema content (SDL, introspection
	// JSON, or another generator-specific format) into a CapabilityFile.
	GenerateFromContent(ctx context.Context, content []byte) (*CapabilityFile, error)
	// Name identifies the generator, e.g. "graphql".
	Name() string
	// Description is a short human-readable summary of what this
	// generator produces tools from.
	Description() string
	// SupportedExtensions lists the file extensions this generator
	// recognizes, e.g. []string{".graphql", ".gql"}.
	SupportedExtensions() []string
}
