package graphql

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// introspectionTypeRef mirrors the recursive `{kind, name, ofType}` shape
// GraphQL introspection uses to describe wrapped types (NON_NULL, LIST).
type introspectionTypeRef struct {
	Kind   string                 `json:"kind"`
	Name   string                 `json:"name"`
	OfType *introspectionTypeRef  `json:"ofType"`
}

// render turns a type ref back into SDL syntax, e.g. NON_NULL(LIST(NON_NULL(String))) -> "[String!]!".
func (r *introspectionTypeRef) render() string {
	if r == nil {
		return ""
	}
	switch r.Kind {
	case "NON_NULL":
		return r.OfType.render() + "!"
	case "LIST":
		return "[" + r.OfType.render() + "]"
	default:
		return r.Name
	}
}

type introspectionInputValue struct {
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Type         *introspectionTypeRef `json:"type"`
	DefaultValue *string               `json:"defaultValue"`
}

type introspectionField struct {
	Name              string                     `json:"name"`
	Description       string                     `json:"description"`
	Args              []introspectionInputValue  `json:"args"`
	Type              *introspectionTypeRef      `json:"type"`
	IsDeprecated      bool                       `json:"isDeprecated"`
	DeprecationReason string                     `json:"deprecationReason"`
}

type introspectionEnumValue struct {
	Name              string `json:"name"`
	IsDeprecated      bool   `json:"isDeprecated"`
	DeprecationReason string `json:"deprecationReason"`
}

type introspectionPossibleType struct {
	Name string `json:"name"`
}

type introspectionFullType struct {
	Kind          string                      `json:"kind"`
	Name          string                      `json:"name"`
	Description   string                      `json:"description"`
	Fields        []introspectionField        `json:"fields"`
	InputFields   []introspectionInputValue   `json:"inputFields"`
	EnumValues    []introspectionEnumValue    `json:"enumValues"`
	Interfaces    []introspectionPossibleType `json:"interfaces"`
	PossibleTypes []introspectionPossibleType `json:"possibleTypes"`
}

type introspectionSchema struct {
	QueryType        *introspectionPossibleType `json:"queryType"`
	MutationType     *introspectionPossibleType `json:"mutationType"`
	SubscriptionType *introspectionPossibleType `json:"subscriptionType"`
	Types            []introspectionFullType    `json:"types"`
}

type introspectionEnvelope struct {
	Data *struct {
		Schema *introspectionSchema `json:"__schema"`
	} `json:"data"`
	Schema *introspectionSchema `json:"__schema"`
}

// introspectionTypeMapEnvelope covers the alternate "_typeMap" shape some
// tooling emits instead of the standard `__schema` response, keyed by type
// name with each value looking like one introspectionFullType.
type introspectionTypeMapEnvelope struct {
	TypeMap map[string]introspectionFullType `json:"_typeMap"`
}

// isIntrospectionMeta reports whether name carries the "__" prefix GraphQL
// introspection reserves for its own meta-types; such types are never
// reconstructed into SDL.
func isIntrospectionMeta(name string) bool {
	return strings.HasPrefix(name, "__")
}

// SDLFromIntrospection reconstructs an SDL document from a raw introspection
// JSON payload, supporting both the standard `{"__schema": {...}}` shape
// (optionally wrapped in `{"data": ...}`) and the `{"_typeMap": {...}}`
// shape some tools emit instead.
func SDLFromIntrospection(raw []byte) (string, error) {
	var typeMapEnv introspectionTypeMapEnvelope
	if err := json.Unmarshal(raw, &typeMapEnv); err == nil && len(typeMapEnv.TypeMap) > 0 {
		types := make([]introspectionFullType, 0, len(typeMapEnv.TypeMap))
		names := make([]string, 0, len(typeMapEnv.TypeMap))
		for name := range typeMapEnv.TypeMap {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ft := typeMapEnv.TypeMap[name]
			ft.Name = name
			types = append(types, ft)
		}
		return renderSDLFromTypes(types, nil)
	}

	var env introspectionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("graphql: invalid introspection payload: %w", err)
	}
	schema := env.Schema
	if schema == nil && env.Data != nil {
		schema = env.Data.Schema
	}
	if schema == nil {
		return "", fmt.Errorf("graphql: introspection payload has no __schema")
	}
	return renderSDLFromTypes(schema.Types, schema)
}

func renderSDLFromTypes(types []introspectionFullType, schema *introspectionSchema) (string, error) {
	var b strings.Builder
	kept := 0

	for _, t := range types {
		if isIntrospectionMeta(t.Name) || t.Name == "" {
			continue
		}
		switch t.Kind {
		case "OBJECT":
			renderObjectLike(&b, "type", t)
			kept++
		case "INTERFACE":
			renderObjectLike(&b, "interface", t)
			kept++
		case "INPUT_OBJECT":
			renderInputObject(&b, t)
			kept++
		case "ENUM":
			renderEnum(&b, t)
			kept++
		case "UNION":
			renderUnion(&b, t)
			kept++
		case "SCALAR":
			if IsBuiltinScalar(t.Name) {
				continue
			}
			fmt.Fprintf(&b, "scalar %s\n\n", t.Name)
			kept++
		}
	}

	if kept == 0 {
		return "", fmt.Errorf("graphql: introspection payload produced no reconstructible types")
	}

	if schema != nil && needsExplicitSchemaBlock(schema) {
		var sb strings.Builder
		sb.WriteString("schema {\n")
		if schema.QueryType != nil && schema.QueryType.Name != "" {
			fmt.Fprintf(&sb, "  query: %s\n", schema.QueryType.Name)
		}
		if schema.MutationType != nil && schema.MutationType.Name != "" {
			fmt.Fprintf(&sb, "  mutation: %s\n", schema.MutationType.Name)
		}
		if schema.SubscriptionType != nil && schema.SubscriptionType.Name != "" {
			fmt.Fprintf(&sb, "  subscription: %s\n", schema.SubscriptionType.Name)
		}
		sb.WriteString("}\n\n")
		return sb.String() + b.String(), nil
	}

	return b.String(), nil
}

func needsExplicitSchemaBlock(schema *introspectionSchema) bool {
	if schema.QueryType != nil && schema.QueryType.Name != "" && schema.QueryType.Name != "Query" {
		return true
	}
	if schema.MutationType != nil && schema.MutationType.Name != "" && schema.MutationType.Name != "Mutation" {
		return true
	}
	if schema.SubscriptionType != nil && schema.SubscriptionType.Name != "" && schema.SubscriptionType.Name != "Subscription" {
		return true
	}
	return false
}

func renderObjectLike(b *strings.Builder, keyword string, t introspectionFullType) {
	if t.Description != "" {
		fmt.Fprintf(b, "\"\"\"%s\"\"\"\n", t.Description)
	}
	implements := ""
	if len(t.Interfaces) > 0 {
		names := make([]string, 0, len(t.Interfaces))
		for _, i := range t.Interfaces {
			names = append(names, i.Name)
		}
		implements = " implements " + strings.Join(names, " & ")
	}
	fmt.Fprintf(b, "%s %s%s {\n", keyword, t.Name, implements)
	for _, f := range t.Fields {
		renderField(b, f)
	}
	b.WriteString("}\n\n")
}

func renderField(b *strings.Builder, f introspectionField) {
	args := ""
	if len(f.Args) > 0 {
		parts := make([]string, 0, len(f.Args))
		for _, a := range f.Args {
			parts = append(parts, renderInputValue(a))
		}
		args = "(" + strings.Join(parts, ", ") + ")"
	}
	deprecated := ""
	if f.IsDeprecated {
		if f.DeprecationReason != "" {
			deprecated = fmt.Sprintf(" @deprecated(reason: %q)", f.DeprecationReason)
		} else {
			deprecated = " @deprecated"
		}
	}
	fmt.Fprintf(b, "  %s%s: %s%s\n", f.Name, args, f.Type.render(), deprecated)
}

func renderInputValue(a introspectionInputValue) string {
	s := fmt.Sprintf("%s: %s", a.Name, a.Type.render())
	if a.DefaultValue != nil {
		s += " = " + *a.DefaultValue
	}
	return s
}

func renderInputObject(b *strings.Builder, t introspectionFullType) {
	if t.Description != "" {
		fmt.Fprintf(b, "\"\"\"%s\"\"\"\n", t.Description)
	}
	fmt.Fprintf(b, "input %s {\n", t.Name)
	for _, f := range t.InputFields {
		fmt.Fprintf(b, "  %s\n", renderInputValue(f))
	}
	b.WriteString("}\n\n")
}

func renderEnum(b *strings.Builder, t introspectionFullType) {
	fmt.Fprintf(b, "enum %s {\n", t.Name)
	for _, v := range t.EnumValues {
		deprecated := ""
		if v.IsDeprecated {
			if v.DeprecationReason != "" {
				deprecated = fmt.Sprintf(" @deprecated(reason: %q)", v.DeprecationReason)
			} else {
				deprecated = " @deprecated"
			}
		}
		fmt.Fprintf(b, "  %s%s\n", v.Name, deprecated)
	}
	b.WriteString("}\n\n")
}

func renderUnion(b *strings.Builder, t introspectionFullType) {
	if len(t.PossibleTypes) == 0 {
		fmt.Fprintf(b, "union %s\n\n", t.Name)
		return
	}
	names := make([]string, 0, len(t.PossibleTypes))
	for _, p := range t.PossibleTypes {
		names = append(names, p.Name)
	}
	fmt.Fprintf(b, "union %s = %s\n\n", t.Name, strings.Join(names, " | "))
}
