package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/reqgraph/internal/gqlerr"
	schema "github.com/hanpama/reqgraph/internal/schema"
)

// Pattern: Result comparison
func TestErrors_LocatedPaths_Result(t *testing.T) {
	t.Run("Simple", func(t *testing.T) {
		sch := newSchemaWithQueryType(newObjectType("Query", field("a", str())))
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.a": NewMockErrorResolver(fmt.Errorf("boom")),
		})
		doc := mustParseQuery(t, "{ a }")

		gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

		assertResult(t, &ExecutionResult{
			Data:   map[string]any{"a": nil},
			Errors: []GraphQLError{internalErr("boom", Path{"a"})},
		}, gotRes)
	})

	t.Run("Nested", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("obj", schema.NamedType("Obj"))),
			newObjectType("Obj", field("a", str())),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.obj": NewMockValueResolver(map[string]any{}),
			"Obj.a":     NewMockErrorResolver(fmt.Errorf("boom")),
		})
		doc := mustParseQuery(t, "{ obj { a } }")

		gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

		assertResult(t, &ExecutionResult{
			Data:   map[string]any{"obj": map[string]any{"a": nil}},
			Errors: []GraphQLError{internalErr("boom", Path{"obj", "a"})},
		}, gotRes)
	})

	t.Run("List index in path", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("objs", list(schema.NamedType("Obj")))),
			newObjectType("Obj", field("a", str())),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.objs": NewMockValueResolver([]any{map[string]any{"idx": 0}, map[string]any{"idx": 1}}),
			"Obj.a": func(ctx context.Context, src any, args map[string]any) (any, error) {
				if src.(map[string]any)["idx"].(int) == 1 {
					return nil, fmt.Errorf("boom")
				}
				return "A", nil
			},
		})
		doc := mustParseQuery(t, "{ objs { a } }")

		gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

		assertResult(t, &ExecutionResult{
			Data:   map[string]any{"objs": []any{map[string]any{"a": "A"}, map[string]any{"a": nil}}},
			Errors: []GraphQLError{internalErr("boom", Path{"objs", 1, "a"})},
		}, gotRes)
	})

	t.Run("Alias in path", func(t *testing.T) {
		sch := newSchemaWithQueryType(newObjectType("Query", field("a", str())))
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.a": NewMockErrorResolver(fmt.Errorf("boom")),
		})
		doc := mustParseQuery(t, "{ first: a }")

		gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

		assertResult(t, &ExecutionResult{
			Data:   map[string]any{"first": nil},
			Errors: []GraphQLError{internalErr("boom", Path{"first"})},
		}, gotRes)
	})
}

// Pattern: Result comparison
func TestErrors_Extensions_FromKind_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		field("me", str()),
		field("secret", str()),
		field("task", str()),
		field("create", str()),
		field("complete", str()),
		field("wrapped", str()),
	))
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.me":     NewMockErrorResolver(gqlerr.Unauthenticated("login required")),
		"Query.secret": NewMockErrorResolver(gqlerr.Forbidden("admins only")),
		"Query.task":   NewMockErrorResolver(gqlerr.NotFound("task 7 not found").WithDetail("id", "7")),
		"Query.create": NewMockErrorResolver(gqlerr.Validation("invalid input").WithViolation("title", "must not be empty")),
		"Query.complete": NewMockErrorResolver(
			gqlerr.Conflict("already completed"),
		),
		"Query.wrapped": NewMockErrorResolver(fmt.Errorf("load: %w", gqlerr.NotFound("gone"))),
	})
	doc := mustParseQuery(t, "{ me secret task create complete wrapped }")

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

	assertResult(t, &ExecutionResult{
		Data: map[string]any{"me": nil, "secret": nil, "task": nil, "create": nil, "complete": nil, "wrapped": nil},
		Errors: []GraphQLError{
			{Message: "login required", Path: Path{"me"}, Extensions: map[string]any{"code": "UNAUTHENTICATED"}},
			{Message: "admins only", Path: Path{"secret"}, Extensions: map[string]any{"code": "FORBIDDEN"}},
			{Message: "task 7 not found", Path: Path{"task"}, Extensions: map[string]any{"code": "NOT_FOUND", "id": "7"}},
			{Message: "invalid input", Path: Path{"create"}, Extensions: map[string]any{
				"code":       "VALIDATION_ERROR",
				"violations": []gqlerr.Violation{{Field: "title", Message: "must not be empty"}},
			}},
			{Message: "already completed", Path: Path{"complete"}, Extensions: map[string]any{"code": "CONFLICT"}},
			{Message: "load: gone", Path: Path{"wrapped"}, Extensions: map[string]any{"code": "NOT_FOUND"}},
		},
	}, gotRes)
}

func TestErrors_CauseAndLocations(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query", field("a", str())))
	cause := errors.New("disk on fire")
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockErrorResolver(cause),
	})
	doc := mustParseQuery(t, "{\n  a\n}")

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

	require.Len(t, gotRes.Errors, 1)
	require.ErrorIs(t, gotRes.Errors[0], cause)
	if diff := cmp.Diff([]Location{{Line: 2, Column: 3}}, gotRes.Errors[0].Locations); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestErrors_PanicRecovered_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query", field("a", str()), field("b", str()), field("c", str())))
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": func(ctx context.Context, source any, args map[string]any) (any, error) {
			panic("nil map write")
		},
		"Query.b": NewMockThunkResolver(func(ctx context.Context, source any, args map[string]any) (any, error) {
			panic(errors.New("index out of range"))
		}),
		"Query.c": NewMockValueResolver("C"),
	})
	doc := mustParseQuery(t, "{ a b c }")

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

	assertResult(t, &ExecutionResult{
		Data: map[string]any{"a": nil, "b": nil, "c": "C"},
		Errors: []GraphQLError{
			internalErr("panic: nil map write", Path{"a"}),
			internalErr("panic: index out of range", Path{"b"}),
		},
	}, gotRes)
}

// Pattern: Result comparison
func TestErrors_SerializerAndTypeResolverPanicsRecovered_Result(t *testing.T) {
	user := newObjectType("User", field("id", str()))
	user.AddInterface("Node")
	node := schema.NewType("Node", schema.TypeKindInterface, "").AddField(field("id", str())).AddPossibleType("User")
	sch := newSchemaWithQueryType(newObjectType("Query",
		field("name", str()).SetAsync(true),
		field("node", schema.NamedType("Node")).SetAsync(true),
		field("ok", str()),
	), user, node)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.name": NewMockValueResolver("boom"),
		"Query.node": NewMockValueResolver(map[string]any{"id": "u1"}),
		"Query.ok":   NewMockValueResolver("OK"),
	})
	rt.SetSerializer(func(val any, _ schema.TypeRef) (any, error) {
		if val == "boom" {
			panic("bad serializer")
		}
		return val, nil
	})
	rt.SetTypeResolver(func(value any) (string, error) {
		panic(errors.New("bad type resolver"))
	})
	doc := mustParseQuery(t, "{ name node { id } ok }")

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

	assertResult(t, &ExecutionResult{
		Data: map[string]any{"name": nil, "node": nil, "ok": "OK"},
		Errors: []GraphQLError{
			internalErr("panic: bad serializer", Path{"name"}),
			internalErr("panic: bad type resolver", Path{"node"}),
		},
	}, gotRes)
}

// Pattern: Result comparison
func TestErrors_RepeatedExecutionIsIdentical_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		field("a", str()).SetAsync(true),
		field("items", list(str())).SetAsync(true),
		field("b", nonNull(str())).SetAsync(true),
		field("c", str()),
	))
	item := func(v string, err error) Thunk {
		return func() (any, error) { return v, err }
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockErrorResolver(gqlerr.Forbidden("no access to a")),
		"Query.items": func(ctx context.Context, source any, args map[string]any) (any, error) {
			return []any{item("x", nil), item("", gqlerr.NotFound("item 1 missing")), item("z", nil)}, nil
		},
		"Query.b": NewMockThunkResolver(NewMockValueResolver("B")),
		"Query.c": NewMockErrorResolver(errors.New("c failed")),
	})
	doc := mustParseQuery(t, "{ c items a b }")
	exec := NewExecutor(sch)

	first := exec.ExecuteRequest(context.Background(), rt, doc, "", nil, nil)
	second := exec.ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(GraphQLError{}, "Cause")); diff != "" {
		t.Fatalf("repeated execution differs (-first +second):\n%s", diff)
	}
	assertResult(t, &ExecutionResult{
		Data: map[string]any{"a": nil, "items": []any{"x", nil, "z"}, "b": "B", "c": nil},
		Errors: []GraphQLError{
			internalErr("c failed", Path{"c"}),
			{Message: "item 1 missing", Path: Path{"items", 1}, Extensions: map[string]any{"code": "NOT_FOUND"}},
			{Message: "no access to a", Path: Path{"a"}, Extensions: map[string]any{"code": "FORBIDDEN"}},
		},
	}, first)
}

// Pattern: Result comparison
func TestErrors_ArgumentCoercion_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		field("task", str()).AddArgument(schema.NewInputValue("id", "", nonNull(schema.NamedType("ID")))),
		field("ok", str()),
	))
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.task": NewMockValueResolver("never"),
		"Query.ok":   NewMockValueResolver("OK"),
	})
	doc := mustParseQuery(t, "query($id: ID) { task(id: $id) ok }")

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", map[string]any{"id": nil}, nil)

	assertResult(t, &ExecutionResult{
		Data: map[string]any{"task": nil, "ok": "OK"},
		Errors: []GraphQLError{{
			Message: "argument 'id' cannot be coerced: cannot provide null for non-null type ID!",
			Path:    Path{"task"},
			Extensions: map[string]any{
				"code":       "VALIDATION_ERROR",
				"violations": []gqlerr.Violation{{Field: "id", Message: "cannot provide null for non-null type ID!"}},
			},
		}},
	}, gotRes)
	assertCalls(t, []Call{{ObjectType: "Query", Field: "ok", Args: map[string]any{}}}, rt.GetCalls())
}

// Pattern: Result comparison
func TestErrors_ContextCanceled_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query", field("a", str())))
	rt := NewMockRuntime(map[string]MockResolver{"Query.a": NewMockValueResolver("A")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gotRes := NewExecutor(sch).ExecuteRequest(ctx, rt, mustParseQuery(t, "{ a }"), "", nil, nil)

	assertResult(t, &ExecutionResult{
		Data:   map[string]any{"a": nil},
		Errors: []GraphQLError{internalErr("context canceled", Path{"a"})},
	}, gotRes)
	assertCalls(t, nil, rt.GetCalls())
}
