package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/reqgraph/internal/schema"
)

func requestErr(message string) GraphQLError {
	return GraphQLError{Message: message, Extensions: map[string]any{"code": "VALIDATION_ERROR"}}
}

// Pattern: Result comparison
func TestContext_OperationSelection_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query", field("a", str()), field("b", str())))
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockValueResolver("A"),
		"Query.b": NewMockValueResolver("B"),
	})
	exec := NewExecutor(sch)

	tests := []struct {
		name      string
		query     string
		operation string
		want      *ExecutionResult
	}{
		{"Inline operation", "{ a }", "", &ExecutionResult{Data: map[string]any{"a": "A"}}},
		{"Single named operation without name", "query Foo { a }", "", &ExecutionResult{Data: map[string]any{"a": "A"}}},
		{"Named operation provided", "query Foo { a } query Bar { b }", "Bar", &ExecutionResult{Data: map[string]any{"b": "B"}}},
		{"Error no operation provided", "fragment F on Query { a }", "", &ExecutionResult{Errors: []GraphQLError{
			requestErr("document contains no operations"),
		}, Rejected: true}},
		{"Error no name with multiple operations", "query Foo { a } query Bar { b }", "", &ExecutionResult{Errors: []GraphQLError{
			requestErr("operation name is required when the document contains multiple operations"),
		}, Rejected: true}},
		{"Error unknown operation name", "query Foo { a } query Bar { b }", "Baz", &ExecutionResult{Errors: []GraphQLError{
			requestErr("operation not found: Baz"),
		}, Rejected: true}},
		{"Error missing mutation type", "mutation { a }", "", &ExecutionResult{Errors: []GraphQLError{
			requestErr("root type not found for mutation operation"),
		}, Rejected: true}},
		{"Error subscription", "subscription { a }", "", &ExecutionResult{Errors: []GraphQLError{
			requestErr("subscriptions are not supported"),
		}, Rejected: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exec.ExecuteRequest(context.Background(), rt, mustParseQuery(t, tt.query), tt.operation, nil, nil)
			assertResult(t, tt.want, got)
		})
	}
}

// Pattern: Result comparison
func TestContext_VariableCoercion_Result(t *testing.T) {
	echo := func(ctx context.Context, src any, args map[string]any) (any, error) { return args["v"], nil }
	intSchema := newSchemaWithQueryType(newObjectType("Query",
		field("echo", schema.NamedType("Int")).AddArgument(schema.NewInputValue("v", "", schema.NamedType("Int"))),
	))

	t.Run("Provided variable", func(t *testing.T) {
		rt := NewMockRuntime(map[string]MockResolver{"Query.echo": echo})
		got := NewExecutor(intSchema).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "query($v: Int!){ echo(v:$v) }"), "", map[string]any{"v": 3}, nil)
		assertResult(t, &ExecutionResult{Data: map[string]any{"echo": 3}}, got)
	})

	t.Run("JSON number variable", func(t *testing.T) {
		rt := NewMockRuntime(map[string]MockResolver{"Query.echo": echo})
		got := NewExecutor(intSchema).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "query($v: Int!){ echo(v:$v) }"), "", map[string]any{"v": float64(3)}, nil)
		assertResult(t, &ExecutionResult{Data: map[string]any{"echo": 3}}, got)
	})

	t.Run("Use default", func(t *testing.T) {
		rt := NewMockRuntime(map[string]MockResolver{"Query.echo": echo})
		got := NewExecutor(intSchema).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "query($v: Int = 5){ echo(v:$v) }"), "", nil, nil)
		assertResult(t, &ExecutionResult{Data: map[string]any{"echo": 5}}, got)
	})

	t.Run("Literal argument", func(t *testing.T) {
		rt := NewMockRuntime(map[string]MockResolver{"Query.echo": echo})
		got := NewExecutor(intSchema).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "{ echo(v: 7) }"), "", nil, nil)
		assertResult(t, &ExecutionResult{Data: map[string]any{"echo": 7}}, got)
	})

	t.Run("Missing required variable", func(t *testing.T) {
		rt := NewMockRuntime(nil)
		got := NewExecutor(intSchema).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "query($v: Int!){ echo(v:$v) }"), "", nil, nil)
		assertResult(t, &ExecutionResult{Errors: []GraphQLError{requestErr("variable $v of required type Int! was not provided")}, Rejected: true}, got)
	})

	t.Run("Null for NonNull variable", func(t *testing.T) {
		rt := NewMockRuntime(nil)
		got := NewExecutor(intSchema).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "query($v: Int!){ echo(v:$v) }"), "", map[string]any{"v": nil}, nil)
		assertResult(t, &ExecutionResult{Errors: []GraphQLError{requestErr("variable $v of type Int! cannot be null")}, Rejected: true}, got)
	})
}

// Pattern: Result comparison
func TestContext_ArgumentDefaults_Result(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query", field("tasks", str()).
			AddArgument(schema.NewInputValue("first", "", schema.NamedType("Int")).SetDefault(int64(10))).
			AddArgument(schema.NewInputValue("status", "", schema.NamedType("Status")).SetDefault("OPEN")).
			AddArgument(schema.NewInputValue("filter", "", schema.NamedType("Filter")))),
		schema.NewType("Status", schema.TypeKindEnum, "").
			AddEnumValue(schema.NewEnumValue("OPEN", "")).
			AddEnumValue(schema.NewEnumValue("DONE", "")),
		schema.NewType("Filter", schema.TypeKindInputObject, "").
			AddInputField(schema.NewInputValue("owner", "", schema.NamedType("ID"))).
			AddInputField(schema.NewInputValue("limit", "", schema.NamedType("Int")).SetDefault(int64(3))),
	)

	var gotArgs map[string]any
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.tasks": func(ctx context.Context, src any, args map[string]any) (any, error) {
			gotArgs = args
			return "ok", nil
		},
	})
	exec := NewExecutor(sch)

	got := exec.ExecuteRequest(context.Background(), rt, mustParseQuery(t, `query($owner: ID) { tasks(status: DONE, filter: {owner: $owner}) }`), "", map[string]any{"owner": "u1"}, nil)
	assertResult(t, &ExecutionResult{Data: map[string]any{"tasks": "ok"}}, got)
	require.Equal(t, map[string]any{
		"first":  10,
		"status": "DONE",
		"filter": map[string]any{"owner": "u1", "limit": 3},
	}, gotArgs)

	got = exec.ExecuteRequest(context.Background(), rt, mustParseQuery(t, `{ tasks(status: ARCHIVED) }`), "", nil, nil)
	require.Len(t, got.Errors, 1)
	require.Equal(t, "VALIDATION_ERROR", got.Errors[0].Code())
	require.Contains(t, got.Errors[0].Message, `value "ARCHIVED" does not exist in enum Status`)
}

// Pattern: Result comparison
func TestContext_RootValueAndResolveInfo_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query", field("greeting", str())))

	var info ResolveInfo
	rt := &infoRuntime{MockRuntime: NewMockRuntime(nil), seen: &info}
	got := NewExecutor(sch).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "query Hello { hi: greeting }"), "", nil, map[string]any{"greeting": "hello"})

	assertResult(t, &ExecutionResult{Data: map[string]any{"hi": "hello"}}, got)
	require.Equal(t, "Query", info.ParentType)
	require.Equal(t, "greeting", info.FieldName)
	require.Equal(t, Path{"hi"}, info.Path)
	require.Equal(t, "String", info.ReturnType.String())
	require.Equal(t, "Hello", info.Operation.Name)
	require.Same(t, sch, info.Schema)
}

type infoRuntime struct {
	*MockRuntime
	seen *ResolveInfo
}

func (r *infoRuntime) ResolveField(ctx context.Context, info ResolveInfo, source any, args map[string]any) (any, error) {
	*r.seen = info
	return r.MockRuntime.ResolveField(ctx, info, source, args)
}

func TestExecutionResult_JSON(t *testing.T) {
	tests := []struct {
		name string
		res  *ExecutionResult
		want string
	}{
		{"executed", &ExecutionResult{Data: map[string]any{"a": "A"}}, `{"data":{"a":"A"}}`},
		{"root nulled", &ExecutionResult{Errors: []GraphQLError{requestErr("boom")}}, `{"data":null,"errors":[{"message":"boom","extensions":{"code":"VALIDATION_ERROR"}}]}`},
		{"rejected", rejectedResult("operation not found: Baz"), `{"errors":[{"message":"operation not found: Baz","extensions":{"code":"VALIDATION_ERROR"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.res)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if diff := cmp.Diff(tt.want, string(got)); diff != "" {
				t.Fatalf("JSON mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
