package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	schema "github.com/hanpama/reqgraph/internal/schema"
)

// rendezvous blocks each caller until n callers have arrived, or fails after
// a timeout. It only succeeds if the callers run concurrently.
type rendezvous struct {
	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

func newRendezvous(n int) *rendezvous {
	r := &rendezvous{done: make(chan struct{})}
	r.wg.Add(n)
	go func() {
		r.wg.Wait()
		r.once.Do(func() { close(r.done) })
	}()
	return r
}

func (r *rendezvous) arrive() error {
	r.wg.Done()
	select {
	case <-r.done:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("siblings did not run concurrently")
	}
}

// Pattern: Result comparison
func TestConcurrency_AsyncSiblings_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		field("a", str()).SetAsync(true),
		field("b", str()).SetAsync(true),
		field("c", str()).SetAsync(true),
	))
	meet := newRendezvous(3)
	wait := func(v string) MockResolver {
		return func(ctx context.Context, source any, args map[string]any) (any, error) {
			if err := meet.arrive(); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": wait("A"),
		"Query.b": wait("B"),
		"Query.c": wait("C"),
	})

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "{ a b c }"), "", nil, nil)

	assertResult(t, &ExecutionResult{Data: map[string]any{"a": "A", "b": "B", "c": "C"}}, gotRes)
}

// Pattern: Result comparison
func TestConcurrency_ThunkSiblings_Result(t *testing.T) {
	// Sync fields returning thunks suspend only their own branch.
	sch := newSchemaWithQueryType(
		newObjectType("Query", field("x", schema.NamedType("X")), field("y", schema.NamedType("X"))),
		newObjectType("X", field("v", str())),
	)
	meet := newRendezvous(2)
	lazy := func(v string) MockResolver {
		return NewMockThunkResolver(func(ctx context.Context, source any, args map[string]any) (any, error) {
			if err := meet.arrive(); err != nil {
				return nil, err
			}
			return map[string]any{"v": v}, nil
		})
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.x": lazy("X"),
		"Query.y": lazy("Y"),
	})

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "{ x { v } y { v } }"), "", nil, nil)

	assertResult(t, &ExecutionResult{Data: map[string]any{"x": map[string]any{"v": "X"}, "y": map[string]any{"v": "Y"}}}, gotRes)
}

// Pattern: Result comparison
func TestConcurrency_ThunkListItems_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query", field("items", list(str()))))
	meet := newRendezvous(3)
	item := func(v string) Thunk {
		return func() (any, error) {
			if err := meet.arrive(); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.items": NewMockValueResolver([]any{item("1"), item("2"), item("3")}),
	})

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "{ items }"), "", nil, nil)

	assertResult(t, &ExecutionResult{Data: map[string]any{"items": []any{"1", "2", "3"}}}, gotRes)
}

// Pattern: Result comparison
func TestConcurrency_ParentBeforeChild_Result(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query", field("parent", schema.NamedType("P")).SetAsync(true)),
		newObjectType("P", field("child", str()).SetAsync(true)),
	)
	var mu sync.Mutex
	var order []string
	record := func(name string, v any) MockResolver {
		return func(ctx context.Context, source any, args map[string]any) (any, error) {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return v, nil
		}
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.parent": record("parent", map[string]any{}),
		"P.child":      record("child", "c"),
	})

	gotRes := NewExecutor(sch).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "{ parent { child } }"), "", nil, nil)

	assertResult(t, &ExecutionResult{Data: map[string]any{"parent": map[string]any{"child": "c"}}}, gotRes)
	if len(order) != 2 || order[0] != "parent" || order[1] != "child" {
		t.Fatalf("unexpected resolution order: %v", order)
	}
}

// Pattern: Result comparison
func TestConcurrency_MaxConcurrencyOne_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		field("a", str()).SetAsync(true),
		field("b", str()).SetAsync(true),
	))
	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)
	work := func(v string) MockResolver {
		return func(ctx context.Context, source any, args map[string]any) (any, error) {
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
			return v, nil
		}
	}
	rt := NewMockRuntime(map[string]MockResolver{"Query.a": work("A"), "Query.b": work("B")})

	gotRes := NewExecutor(sch, WithMaxConcurrency(1)).ExecuteRequest(context.Background(), rt, mustParseQuery(t, "{ a b }"), "", nil, nil)

	assertResult(t, &ExecutionResult{Data: map[string]any{"a": "A", "b": "B"}}, gotRes)
	if maxSeen != 1 {
		t.Fatalf("expected at most one resolver at a time, saw %d", maxSeen)
	}
}
