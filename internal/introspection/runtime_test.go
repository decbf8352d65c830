package introspection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/reqgraph/internal/executor"
	language "github.com/hanpama/reqgraph/internal/language"
	schema "github.com/hanpama/reqgraph/internal/schema"
)

const testSDL = `
enum Status {
  OPEN
  DONE
  ARCHIVED @deprecated(reason: "use DONE")
}

type Task {
  id: ID!
  title: String!
  tags: [String!]!
  status: Status
}

type Query {
  "Look up one task."
  task(id: ID!, status: Status = OPEN): Task
  hello: String
}
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL("test.graphql", testSDL)
	require.NoError(t, err)
	return sch
}

func execute(t *testing.T, sch *schema.Schema, rt executor.Runtime, query string) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return executor.NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)
}

func TestExtend_DoesNotModifyOriginal(t *testing.T) {
	sch := buildSchema(t)
	extended, err := Extend(sch)
	require.NoError(t, err)

	require.Nil(t, sch.GetQueryType().Field("__schema"))
	require.NotNil(t, extended.GetQueryType().Field("__schema"))
	require.NotNil(t, extended.GetQueryType().Field("__type"))
	require.Nil(t, sch.Types["__Type"])
	require.NotNil(t, extended.Types["__Type"])
	require.Same(t, sch.GetQueryType().Field("task"), extended.GetQueryType().Field("task"))
}

func TestIntrospection_SchemaRoots(t *testing.T) {
	extended, err := Extend(buildSchema(t))
	require.NoError(t, err)
	rt := Wrap(executor.NewMockRuntime(nil), extended)

	res := execute(t, extended, rt, `{ __schema { queryType { name } mutationType { name } } }`)

	require.Empty(t, res.Errors)
	want := map[string]any{
		"__schema": map[string]any{
			"queryType":    map[string]any{"name": "Query"},
			"mutationType": nil,
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospection_TypeDetails(t *testing.T) {
	extended, err := Extend(buildSchema(t))
	require.NoError(t, err)
	rt := Wrap(executor.NewMockRuntime(nil), extended)

	res := execute(t, extended, rt, `{
  task: __type(name: "Task") {
    kind
    name
    fields { name type { kind name ofType { kind name ofType { kind name ofType { name } } } } }
  }
  missing: __type(name: "Nope") { name }
}`)

	require.Empty(t, res.Errors)
	named := func(kind, name string) map[string]any {
		return map[string]any{"kind": kind, "name": name, "ofType": nil}
	}
	want := map[string]any{
		"task": map[string]any{
			"kind": "OBJECT",
			"name": "Task",
			"fields": []any{
				map[string]any{"name": "id", "type": map[string]any{"kind": "NON_NULL", "name": nil, "ofType": named("SCALAR", "ID")}},
				map[string]any{"name": "title", "type": map[string]any{"kind": "NON_NULL", "name": nil, "ofType": named("SCALAR", "String")}},
				map[string]any{"name": "tags", "type": map[string]any{"kind": "NON_NULL", "name": nil, "ofType": map[string]any{
					"kind": "LIST", "name": nil, "ofType": map[string]any{
						"kind": "NON_NULL", "name": nil, "ofType": map[string]any{"name": "String"},
					},
				}}},
				map[string]any{"name": "status", "type": map[string]any{"kind": "ENUM", "name": "Status", "ofType": nil}},
			},
		},
		"missing": nil,
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospection_ArgumentsAndEnums(t *testing.T) {
	extended, err := Extend(buildSchema(t))
	require.NoError(t, err)
	rt := Wrap(executor.NewMockRuntime(nil), extended)

	res := execute(t, extended, rt, `{
  query: __type(name: "Query") { fields { name description args { name defaultValue } } }
  status: __type(name: "Status") {
    current: enumValues { name }
    all: enumValues(includeDeprecated: true) { name isDeprecated deprecationReason }
  }
}`)

	require.Empty(t, res.Errors)
	want := map[string]any{
		"query": map[string]any{"fields": []any{
			map[string]any{"name": "task", "description": "Look up one task.", "args": []any{
				map[string]any{"name": "id", "defaultValue": nil},
				map[string]any{"name": "status", "defaultValue": "OPEN"},
			}},
			map[string]any{"name": "hello", "description": nil, "args": []any{}},
		}},
		"status": map[string]any{
			"current": []any{map[string]any{"name": "OPEN"}, map[string]any{"name": "DONE"}},
			"all": []any{
				map[string]any{"name": "OPEN", "isDeprecated": false, "deprecationReason": nil},
				map[string]any{"name": "DONE", "isDeprecated": false, "deprecationReason": nil},
				map[string]any{"name": "ARCHIVED", "isDeprecated": true, "deprecationReason": "use DONE"},
			},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospection_DelegatesOtherFields(t *testing.T) {
	extended, err := Extend(buildSchema(t))
	require.NoError(t, err)
	rt := Wrap(executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	}), extended)

	res := execute(t, extended, rt, `{ hello __typename }`)

	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"hello": "world", "__typename": "Query"}, res.Data)
}

func TestIntrospection_DisabledWithoutExtend(t *testing.T) {
	sch := buildSchema(t)

	res := execute(t, sch, executor.NewMockRuntime(nil), `{ __schema { queryType { name } } }`)

	require.Len(t, res.Errors, 1)
	require.Equal(t, "VALIDATION_ERROR", res.Errors[0].Code())
}
