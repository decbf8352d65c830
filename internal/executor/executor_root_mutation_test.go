package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	schema "github.com/hanpama/reqgraph/internal/schema"
)

// Pattern: Result comparison
func TestMutation_Serial_Evaluation_Order_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query"))
	sch.SetMutationType("Mutation")
	sch.AddType(newObjectType(
		"Mutation",
		field("m1", str()).SetAsync(true),
		field("m2", str()).SetAsync(true),
		field("m3", str()).SetAsync(true),
	))
	rt := NewMockRuntime(map[string]MockResolver{
		"Mutation.m1": NewMockValueResolver("1"),
		"Mutation.m2": NewMockErrorResolver(fmt.Errorf("boom")),
		"Mutation.m3": NewMockValueResolver("3"),
	})
	doc := mustParseQuery(t, "mutation { m1 m2 m3 }")

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

	assertResult(t, &ExecutionResult{
		Data:   map[string]any{"m1": "1", "m2": nil, "m3": "3"},
		Errors: []GraphQLError{internalErr("boom", Path{"m2"})},
	}, gotRes)
	assertCalls(t, []Call{
		{ObjectType: "Mutation", Field: "m1", Args: map[string]any{}},
		{ObjectType: "Mutation", Field: "m2", Args: map[string]any{}},
		{ObjectType: "Mutation", Field: "m3", Args: map[string]any{}},
	}, rt.GetCalls())
}

// Pattern: Result comparison
func TestMutation_EffectsVisibleToNextField_Result(t *testing.T) {
	// type Mutation { increment: Int! current: Int! }
	sch := newSchemaWithQueryType(newObjectType("Query"))
	sch.SetMutationType("Mutation")
	sch.AddType(newObjectType("Mutation",
		field("increment", nonNull(schema.NamedType("Int"))).SetAsync(true),
		field("current", nonNull(schema.NamedType("Int"))).SetAsync(true),
	))

	var counter int64
	rt := NewMockRuntime(map[string]MockResolver{
		// The write completes inside a thunk after a delay; the next root
		// field must still observe it.
		"Mutation.increment": NewMockThunkResolver(func(ctx context.Context, source any, args map[string]any) (any, error) {
			time.Sleep(20 * time.Millisecond)
			return int(atomic.AddInt64(&counter, 1)), nil
		}),
		"Mutation.current": func(ctx context.Context, source any, args map[string]any) (any, error) {
			return int(atomic.LoadInt64(&counter)), nil
		},
	})
	doc := mustParseQuery(t, "mutation { first: increment current second: increment again: current }")

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

	assertResult(t, &ExecutionResult{
		Data: map[string]any{"first": 1, "current": 1, "second": 2, "again": 2},
	}, gotRes)
}

// Pattern: Result comparison
func TestMutation_NoOverlap(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query"))
	sch.SetMutationType("Mutation")
	sch.AddType(newObjectType("Mutation", field("work", str()).SetAsync(true)))

	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)
	rt := NewMockRuntime(map[string]MockResolver{
		"Mutation.work": func(ctx context.Context, source any, args map[string]any) (any, error) {
			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			return "done", nil
		},
	})
	doc := mustParseQuery(t, "mutation { a: work b: work c: work d: work }")

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, doc, "", nil, nil)

	assertResult(t, &ExecutionResult{Data: map[string]any{"a": "done", "b": "done", "c": "done", "d": "done"}}, gotRes)
	if maxSeen != 1 {
		t.Fatalf("mutation root fields overlapped: %d ran at once", maxSeen)
	}
}
