// Package graphql implements the GraphQL-to-tool-capability generator: SDL
// and introspection parsing (C6), schema validation (C7), introspection-to-SDL
// reconstruction (C8), and tool descriptor emission (C9).
package graphql

import "strings"

// OperationKind names a GraphQL root operation kind.
type OperationKind string

const (
	KindQuery        OperationKind = "Query"
	KindMutation     OperationKind = "Mutation"
	KindSubscription OperationKind = "Subscription"
)

// Directive is a parsed `@name(k: v, ...)` usage or definition-site
// declaration.
type Directive struct {
	Name         string
	Arguments    map[string]any
	Location     string
	IsRepeatable bool
}

// Argument is a single argument on an operation, or equivalently a field on
// an input object once Required/DefaultValue are interpreted the same way.
type Argument struct {
	Name         string
	ArgType      string // normalized type string, e.g. "[String!]!"
	Description  string
	Required     bool
	DefaultValue any
	HasDefault   bool
	Directives   []Directive
}

// Operation is a single field on a root type (Query, Mutation, or
// Subscription).
type Operation struct {
	Name        string
	Kind        OperationKind
	Description string
	Arguments   []Argument
	ReturnType  string
	Directives  []Directive
}

// InputObjectField is a field on an input object type.
type InputObjectField struct {
	Name         string
	FieldType    string
	Required     bool
	DefaultValue any
	HasDefault   bool
	Description  string
}

// InputObjectType is a GraphQL `input` type.
type InputObjectType struct {
	Name        string
	Description string
	Fields      []InputObjectField
}

// EnumValue is a single member of an EnumType.
type EnumValue struct {
	Name             string
	Deprecated       bool
	DeprecationReason string
}

// EnumType is a GraphQL `enum` type.
type EnumType struct {
	Name   string
	Values []EnumValue
}

// ObjectField is a field on an object or interface type (used for interface
// implementation checks and introspection reconstruction, not for root
// operations which use Operation instead).
type ObjectField struct {
	Name       string
	FieldType  string
	Arguments  []Argument
	Directives []Directive
}

// ObjectType is a GraphQL `type`.
type ObjectType struct {
	Name       string
	Implements []string
	Fields     []ObjectField
	Directives []Directive
}

// InterfaceType is a GraphQL `interface`.
type InterfaceType struct {
	Name          string
	Fields        []ObjectField
	PossibleTypes []string
}

// UnionType is a GraphQL `union`.
type UnionType struct {
	Name          string
	PossibleTypes []string
}

// ScalarType is a custom GraphQL `scalar`.
type ScalarType struct {
	Name       string
	Directives []Directive
}

// Schema is the intermediate model owned by the parser for the duration of
// one capability generation. C9 consumes it to produce owned tool
// descriptors; nothing survives past capability-file serialization.
type Schema struct {
	Operations  []Operation
	Objects     map[string]*ObjectType
	Interfaces  map[string]*InterfaceType
	Unions      map[string]*UnionType
	Enums       map[string]*EnumType
	InputTypes  map[string]*InputObjectType
	Scalars     map[string]*ScalarType

	// QueryTypeName, MutationTypeName, and SubscriptionTypeName record the
	// root type names bound by an explicit `schema { ... }` block, if any;
	// they default to "Query"/"Mutation"/"Subscription" otherwise.
	QueryTypeName        string
	MutationTypeName     string
	SubscriptionTypeName string

	// CustomDirectives records `directive @name(...) on LOCATION` definitions
	// found in the schema, keyed by name. The built-in directives are not
	// seeded here (see builtinDirectiveDefs); a schema that redefines one
	// gets an entry under that name, which Validate reports as an error.
	CustomDirectives map[string]DirectiveDef
}

// NewSchema returns an empty Schema with conventional root type names.
func NewSchema() *Schema {
	return &Schema{
		Objects:              make(map[string]*ObjectType),
		Interfaces:           make(map[string]*InterfaceType),
		Unions:               make(map[string]*UnionType),
		Enums:                make(map[string]*EnumType),
		InputTypes:           make(map[string]*InputObjectType),
		Scalars:              make(map[string]*ScalarType),
		QueryTypeName:        "Query",
		MutationTypeName:     "Mutation",
		SubscriptionTypeName: "Subscription",
	}
}

// builtinScalars are GraphQL's built-in scalar types, always considered
// defined regardless of what the schema declares.
var builtinScalars = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
	"ID":      true,
}

// IsBuiltinScalar reports whether name is one of GraphQL's five built-in
// scalar types.
func IsBuiltinScalar(name string) bool {
	return builtinScalars[name]
}

// ParseType splits a raw GraphQL type string into its normalized form and
// whether it is non-null at the outermost level. List brackets and nested
// non-null markers are preserved verbatim in the normalized string; only a
// trailing `= default` suffix is stripped.
func ParseType(raw string) (normalized string, required bool) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "="); idx >= 0 && !strings.ContainsAny(s[:idx], "[]") {
		s = strings.TrimSpace(s[:idx])
	}
	s = strings.TrimSpace(s)
	required = strings.HasSuffix(s, "!")
	return s, required
}

// BaseType strips every list-bracket wrapper, non-null marker, and trailing
// default-value suffix from a raw GraphQL type string, returning the bare
// named type.
func BaseType(raw string) string {
	s, _ := ParseType(raw)
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasSuffix(s, "!"):
			s = strings.TrimSuffix(s, "!")
		case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
			s = s[1 : len(s)-1]
		default:
			return s
		}
	}
}
