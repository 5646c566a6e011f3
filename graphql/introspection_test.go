package graphql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSDLFromIntrospectionStandardShape(t *testing.T) {
	raw := []byte(`{
  "data": {
    "__schema": {
      "queryType": {"name": "Query"},
      "types": [
        {
          "kind": "OBJECT",
          "name": "Query",
          "fields": [
            {
              "name": "getUser",
              "args": [
                {"name": "id", "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "ID"}}}
              ],
              "type": {"kind": "SCALAR", "name": "User"}
            }
          ]
        },
        {
          "kind": "OBJECT",
          "name": "User",
          "fields": [
            {"name": "id", "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "ID"}}},
            {"name": "name", "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "String"}}}
          ]
        },
        {"kind": "SCALAR", "name": "String"},
        {"kind": "SCALAR", "name": "ID"},
        {"kind": "OBJECT", "name": "__Type", "fields": []}
      ]
    }
  }
}`)

	sdl, err := SDLFromIntrospection(raw)
	require.NoError(t, err)
	require.Contains(t, sdl, "type Query {")
	require.Contains(t, sdl, "getUser(id: ID!): User")
	require.Contains(t, sdl, "type User {")
	require.NotContains(t, sdl, "__Type")

	schema, err := Parse(sdl)
	require.NoError(t, err)
	require.Len(t, schema.Operations, 1)
	require.Equal(t, "getUser", schema.Operations[0].Name)
}

func TestSDLFromIntrospectionNonConventionalRootNeedsSchemaBlock(t *testing.T) {
	raw := []byte(`{
  "__schema": {
    "queryType": {"name": "RootQuery"},
    "types": [
      {"kind": "OBJECT", "name": "RootQuery", "fields": [
        {"name": "ping", "type": {"kind": "SCALAR", "name": "Boolean"}}
      ]}
    ]
  }
}`)
	sdl, err := SDLFromIntrospection(raw)
	require.NoError(t, err)
	require.Contains(t, sdl, "schema {")
	require.Contains(t, sdl, "query: RootQuery")
}

func TestSDLFromIntrospectionTypeMapShape(t *testing.T) {
	raw := []byte(`{
  "_typeMap": {
    "Query": {
      "kind": "OBJECT",
      "fields": [
        {"name": "ping", "type": {"kind": "SCALAR", "name": "Boolean"}}
      ]
    }
  }
}`)
	sdl, err := SDLFromIntrospection(raw)
	require.NoError(t, err)
	require.Contains(t, sdl, "type Query {")
	require.Contains(t, sdl, "ping: Boolean")
}

func TestSDLFromIntrospectionEnumWithDeprecation(t *testing.T) {
	raw := []byte(`{
  "__schema": {
    "types": [
      {"kind": "OBJECT", "name": "Query", "fields": [{"name": "ping", "type": {"kind": "SCALAR", "name": "Boolean"}}]},
      {
        "kind": "ENUM",
        "name": "Status",
        "enumValues": [
          {"name": "ACTIVE", "isDeprecated": false},
          {"name": "LEGACY", "isDeprecated": true, "deprecationReason": "no longer issued"}
        ]
      }
    ]
  }
}`)
	sdl, err := SDLFromIntrospection(raw)
	require.NoError(t, err)
	require.Contains(t, sdl, "enum Status {")
	require.Contains(t, sdl, `LEGACY @deprecated(reason: "no longer issued")`)
}

func TestSDLFromIntrospectionNoTypesFails(t *testing.T) {
	raw := []byte(`{"__schema": {"types": [{"kind": "OBJECT", "name": "__Meta"}]}}`)
	_, err := SDLFromIntrospection(raw)
	require.Error(t, err)
}

func TestSDLFromIntrospectionInvalidPayloadFails(t *testing.T) {
	_, err := SDLFromIntrospection([]byte(`not json`))
	require.Error(t, err)
}
