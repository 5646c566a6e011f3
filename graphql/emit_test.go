package graphql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitToolsBasic(t *testing.T) {
	schema, err := Parse(`
type Query {
  getUser(id: ID!, includeInactive: Boolean = false): User
}
type User {
  id: ID!
  name: String!
}
`)
	require.NoError(t, err)

	tools := EmitTools(schema, EmitOptions{Endpoint: "https://api.example.com/graphql"})
	require.Len(t, tools, 1)
	tool := tools[0]
	require.Equal(t, "getUser", tool.Name)
	require.Equal(t, "graphql", tool.RoutingType)
	require.Contains(t, tool.InputSchema["properties"].(map[string]any), "id")
	require.Contains(t, tool.InputSchema["properties"].(map[string]any), "includeInactive")
	require.Equal(t, []string{"id"}, tool.InputSchema["required"])

	routing := tool.Routing
	require.Equal(t, "https://api.example.com/graphql", routing["endpoint"])
	headers := routing["headers"].(map[string]string)
	require.Equal(t, "application/json", headers["Content-Type"])
}

func TestEmitToolsAppliesToolPrefix(t *testing.T) {
	schema, err := Parse(`
type Query { ping: Boolean }
`)
	require.NoError(t, err)
	tools := EmitTools(schema, EmitOptions{ToolPrefix: "gh"})
	require.Len(t, tools, 1)
	require.Equal(t, "gh_ping", tools[0].Name)
}

// TestEmitToolsDeprecatedOperation covers Scenario D: the description is
// prefixed and annotations record deprecation metadata.
func TestEmitToolsDeprecatedOperation(t *testing.T) {
	schema, err := Parse(`
type Query {
  getUser(id: ID!): User @deprecated(reason: "Use getUserById instead")
}
type User {
  id: ID!
}
`)
	require.NoError(t, err)
	tools := EmitTools(schema, EmitOptions{})
	require.Len(t, tools, 1)
	tool := tools[0]
	require.Contains(t, tool.Description, "DEPRECATED")
	require.Contains(t, tool.Description, "Use getUserById instead")
	require.Equal(t, "true", tool.Annotations["deprecated"])
	require.Equal(t, "Use getUserById instead", tool.Annotations["deprecation_reason"])
}

func TestEmitToolsSkipsDirectiveMarkedOperations(t *testing.T) {
	schema, err := Parse(`
type Query {
  hiddenOp: Boolean @skip(if: true)
  visibleOp: Boolean
}
`)
	require.NoError(t, err)
	tools := EmitTools(schema, EmitOptions{})
	require.Len(t, tools, 1)
	require.Equal(t, "visibleOp", tools[0].Name)
}

func TestEmitToolsDedupesNameCollisions(t *testing.T) {
	schema, err := Parse(`
type Query {
  getUser(id: ID!): User
}
type Mutation {
  getUser(id: ID!): User
}
type User {
  id: ID!
}
`)
	require.NoError(t, err)
	tools := EmitTools(schema, EmitOptions{})
	count := 0
	for _, tl := range tools {
		if tl.Name == "getUser" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestJSONSchemaForTypeHandlesListsAndEnums(t *testing.T) {
	schema := NewSchema()
	schema.Enums["Status"] = &EnumType{Name: "Status", Values: []EnumValue{{Name: "ACTIVE"}, {Name: "INACTIVE"}}}

	listSchema := JSONSchemaForType(schema, "[Status!]!")
	require.Equal(t, "array", listSchema["type"])
	items := listSchema["items"].(map[string]any)
	require.Equal(t, "string", items["type"])
	require.ElementsMatch(t, []string{"ACTIVE", "INACTIVE"}, items["enum"])
}

func TestJSONSchemaForTypeHandlesCustomScalarFormats(t *testing.T) {
	schema := NewSchema()
	dt := JSONSchemaForType(schema, "DateTime!")
	require.Equal(t, "string", dt["type"])
	require.Equal(t, "date-time", dt["format"])
}
