package graphql

import (
	"fmt"
	"sort"
	"strings"
)

// scalarFormats maps custom scalar names (case-sensitive) to a JSON-Schema
// string format, per the GraphQL -> JSON Schema table.
var scalarFormats = map[string]string{
	"DateTime":  "date-time",
	"Date":      "date-time",
	"Time":      "date-time",
	"Timestamp": "date-time",
	"Email":     "email",
	"EmailAddress": "email",
	"URL":  "uri",
	"URI":  "uri",
	"UUID": "uuid",
}

// scalarPlainStrings are custom scalars that map to a bare string schema
// with no format annotation.
var scalarPlainStrings = map[string]bool{
	"PhoneNumber": true,
	"Phone":       true,
	"Upload":      true,
	"File":        true,
}

var scalarObjects = map[string]bool{
	"JSON":       true,
	"JSONObject": true,
}

var scalarIntegers = map[string]bool{
	"BigInt": true,
	"Long":   true,
}

var scalarNumbers = map[string]bool{
	"Decimal":    true,
	"BigDecimal": true,
}

// JSONSchemaForType maps a GraphQL type string (possibly wrapped in list
// brackets and non-null markers) to a JSON Schema fragment, per §4.2.5.
// Non-null wrapping is not represented inside the property itself (it is
// handled via the enclosing object's `required` list); list wrapping
// produces `{type: "array", items: ...}`.
func JSONSchemaForType(schema *Schema, rawType string) map[string]any {
	s := strings.TrimSpace(rawType)
	s = strings.TrimSuffix(s, "!")
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := s[1 : len(s)-1]
		return map[string]any{
			"type":  "array",
			"items": JSONSchemaForType(schema, inner),
		}
	}
	return jsonSchemaForNamedType(schema, s)
}

func jsonSchemaForNamedType(schema *Schema, name string) map[string]any {
	switch name {
	case "String", "ID":
		return map[string]any{"type": "string"}
	case "Int":
		return map[string]any{"type": "integer"}
	case "Float":
		return map[string]any{"type": "number"}
	case "Boolean":
		return map[string]any{"type": "boolean"}
	}
	if format, ok := scalarFormats[name]; ok {
		return map[string]any{"type": "string", "format": format}
	}
	if scalarPlainStrings[name] {
		return map[string]any{"type": "string"}
	}
	if scalarObjects[name] {
		return map[string]any{"type": "object"}
	}
	if scalarIntegers[name] {
		return map[string]any{"type": "integer"}
	}
	if scalarNumbers[name] {
		return map[string]any{"type": "number"}
	}

	if schema != nil {
		if enum, ok := schema.Enums[name]; ok {
			values := make([]string, 0, len(enum.Values))
			for _, v := range enum.Values {
				values = append(values, v.Name)
			}
			return map[string]any{"type": "string", "enum": values}
		}
		if input, ok := schema.InputTypes[name]; ok {
			return jsonSchemaForInputObject(schema, input)
		}
		if iface, ok := schema.Interfaces[name]; ok {
			props := make(map[string]any, len(iface.Fields))
			for _, f := range iface.Fields {
				props[f.Name] = JSONSchemaForType(schema, f.FieldType)
			}
			return map[string]any{"type": "object", "properties": props}
		}
		if union, ok := schema.Unions[name]; ok {
			return map[string]any{
				"type": "object",
				"properties": map[string]any{
					"__typename": map[string]any{"type": "string", "enum": append([]string{}, union.PossibleTypes...)},
				},
				"required": []string{"__typename"},
			}
		}
		if _, ok := schema.Objects[name]; ok {
			// Object types referenced as argument types are uncommon in
			// GraphQL (objects cannot be input types); fall through to the
			// generic scalar description below for robustness.
			_ = name
		}
	}

	return map[string]any{"type": "string", "description": "GraphQL type: " + name}
}

func jsonSchemaForInputObject(schema *Schema, input *InputObjectType) map[string]any {
	properties := make(map[string]any, len(input.Fields))
	var required []string
	for _, f := range input.Fields {
		prop := JSONSchemaForType(schema, f.FieldType)
		if f.HasDefault {
			prop["default"] = f.DefaultValue
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		properties[f.Name] = prop
		if f.Required && !f.HasDefault {
			required = append(required, f.Name)
		}
	}
	out := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		sort.Strings(required)
		out["required"] = required
	}
	return out
}

// ---------------------------------------------------------------------------
// Tool emission (C9)
// ---------------------------------------------------------------------------

// EmitOptions configures tool emission for a single generation run.
type EmitOptions struct {
	// ToolPrefix, if non-empty, is prepended to every tool name as
	// "<prefix>_<operation>".
	ToolPrefix string
	// Endpoint is the GraphQL endpoint every generated routing config
	// targets.
	Endpoint string
	// Auth, if non-nil, supplies the headers attached to every generated
	// routing config.
	Auth *AuthConfig
}

// ToolDescriptor is the generator's own view of one emitted tool, prior to
// being wrapped in a capability.ToolDefinition. It exists so tests and
// callers needing only the descriptor (not the capability-file shape) can
// work with an equivalent without pulling in capability's YAML tags.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
	RoutingType string
	Routing     map[string]any
	Annotations map[string]string
}

// skipFieldOrArgument reports whether directives include a `@skip` usage or
// an `@include(if: false)` usage: both cause the site to be dropped at
// generation time rather than at query execution. This reuses GraphQL's
// execution-time directives as a schema-generation-time toggle, which is
// unusual but preserved here for compatibility with existing schemas that
// rely on it.
func skipFieldOrArgument(directives []Directive) bool {
	for _, d := range directives {
		switch d.Name {
		case "skip":
			return true
		case "include":
			if v, ok := d.Arguments["if"].(bool); ok && !v {
				return true
			}
		}
	}
	return false
}

func deprecationInfo(directives []Directive) (deprecated bool, reason string) {
	for _, d := range directives {
		if d.Name == "deprecated" {
			deprecated = true
			if r, ok := d.Arguments["reason"].(string); ok {
				reason = r
			}
		}
	}
	return
}

// EmitTools produces one ToolDescriptor per non-skipped operation in schema,
// in declaration order, dropping duplicate names (first wins).
func EmitTools(schema *Schema, opts EmitOptions) []ToolDescriptor {
	seen := make(map[string]bool)
	var out []ToolDescriptor

	for _, op := range schema.Operations {
		if skipFieldOrArgument(op.Directives) {
			continue
		}
		name := op.Name
		if opts.ToolPrefix != "" {
			name = opts.ToolPrefix + "_" + op.Name
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		desc := op.Description
		if desc == "" {
			desc = fmt.Sprintf("Execute GraphQL %s: %s", strings.ToLower(string(op.Kind)), op.Name)
		}
		deprecated, reason := deprecationInfo(op.Directives)
		if deprecated {
			desc = fmt.Sprintf("⚠️ DEPRECATED: %s - %s", reason, desc)
		}

		inputSchema, required, argTemplate := buildInputSchemaAndTemplate(schema, op.Arguments)

		annotations := map[string]string{}
		if len(op.Directives) > 0 {
			annotations["directives"] = formatDirectiveList(op.Directives)
		}
		if deprecated {
			annotations["deprecated"] = "true"
			annotations["deprecation_reason"] = reason
		}

		opKeyword := strings.ToLower(string(op.Kind))
		queryBody := fmt.Sprintf("%s { %s(%s){ __typename } }", opKeyword, op.Name, argTemplate)

		routing := map[string]any{
			"endpoint": opts.Endpoint,
			"method":   "POST",
			"headers":  mergeContentTypeHeader(BuildAuthHeaders(opts.Auth)),
			"body_template": map[string]any{
				"query":     queryBody,
				"variables": "{{variables}}",
			},
		}

		out = append(out, ToolDescriptor{
			Name:        name,
			Description: desc,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": inputSchema,
				"required":   required,
			},
			RoutingType: "graphql",
			Routing:     routing,
			Annotations: annotations,
		})
	}

	return out
}

// buildInputSchemaAndTemplate produces the properties map, the required
// list, and the "name: {{ name }}, ..." argument placeholder fragment for a
// set of operation arguments, dropping any argument skipped by @skip or
// @include(if: false).
func buildInputSchemaAndTemplate(schema *Schema, args []Argument) (properties map[string]any, required []string, template string) {
	properties = make(map[string]any, len(args))
	var parts []string
	for _, arg := range args {
		if skipFieldOrArgument(arg.Directives) {
			continue
		}
		prop := JSONSchemaForType(schema, arg.ArgType)
		if arg.HasDefault {
			prop["default"] = arg.DefaultValue
		}
		if arg.Description != "" {
			prop["description"] = arg.Description
		}
		if len(arg.Directives) > 0 {
			prop["x-graphql-directives"] = formatDirectiveList(arg.Directives)
		}
		properties[arg.Name] = prop
		if arg.Required && !arg.HasDefault {
			required = append(required, arg.Name)
		}
		parts = append(parts, fmt.Sprintf("%s: {{ %s }}", arg.Name, arg.Name))
	}
	sort.Strings(required)
	return properties, required, strings.Join(parts, ", ")
}

func formatDirectiveList(directives []Directive) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, "@"+d.Name)
	}
	return strings.Join(parts, " ")
}

func mergeContentTypeHeader(headers map[string]string) map[string]string {
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"
	return headers
}
