package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	executor "github.com/hanpama/reqgraph/internal/executor"
	"github.com/hanpama/reqgraph/internal/gqlerr"
	resolver "github.com/hanpama/reqgraph/internal/resolver"
)

const (
	maxTitleLength = 120
	maxRelated     = 10
	maxPageSize    = 100
)

type params = resolver.Params[Context]

// New builds the schema and binds every resolver of the task tracker.
func New() (*resolver.Compiled[Context], error) {
	sch, err := Schema()
	if err != nil {
		return nil, fmt.Errorf("tasks schema: %w", err)
	}
	r := resolver.NewRegistry[Context](sch)
	if err := Bind(r); err != nil {
		return nil, err
	}
	return r.Compile()
}

// Bind registers the task tracker's resolvers on r.
func Bind(r *resolver.Registry[Context]) error {
	bindings := []struct {
		typ, field string
		fn         resolver.Func[Context]
	}{
		{"Query", "viewer", viewer},
		{"Query", "user", user},
		{"Query", "task", task},
		{"Query", "node", node},
		{"Query", "tasks", listTasks},
		{"Mutation", "createTask", createTask},
		{"Mutation", "completeTask", completeTask},
		{"Mutation", "deleteTask", deleteTask},
		{"User", "tasks", userTasks},
		{"Task", "owner", taskOwner},
		{"Task", "related", taskRelated},
	}
	for _, b := range bindings {
		if err := r.Bind(b.typ, b.field, b.fn); err != nil {
			return err
		}
	}
	return r.BindScalar("Time", serializeTime)
}

func viewer(ctx context.Context, p params) (any, error) {
	return p.Context.requireViewer()
}

func user(ctx context.Context, p params) (any, error) {
	u, err := p.Context.Store.User(ctx, p.Args["id"].(string))
	if err != nil || u == nil {
		// An absent user is null, not an error.
		return nil, err
	}
	return u, nil
}

func task(ctx context.Context, p params) (any, error) {
	t, err := visibleTask(ctx, p.Context, p.Args["id"].(string))
	if err != nil || t == nil {
		return nil, err
	}
	return t, nil
}

func node(ctx context.Context, p params) (any, error) {
	id := p.Args["id"].(string)
	t, err := visibleTask(ctx, p.Context, id)
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}
	u, err := p.Context.Store.User(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	return u, nil
}

// visibleTask returns task id when the viewer may see it, and nil when it
// does not exist.
func visibleTask(ctx context.Context, c Context, id string) (*Task, error) {
	if _, err := c.requireViewer(); err != nil {
		return nil, err
	}
	t, err := c.Store.Task(ctx, id)
	if err != nil || t == nil {
		return nil, err
	}
	if !c.canManage(t) {
		return nil, gqlerr.Forbidden("task %s belongs to another user", id)
	}
	return t, nil
}

func listTasks(ctx context.Context, p params) (any, error) {
	v, err := p.Context.requireViewer()
	if err != nil {
		return nil, err
	}
	first, ok := p.Args["first"].(int)
	if ok && (first < 1 || first > maxPageSize) {
		return nil, gqlerr.Validation("invalid page size").
			WithViolation("first", fmt.Sprintf("must be between 1 and %d", maxPageSize))
	}
	status, _ := p.Args["status"].(string)
	return p.Context.Store.List(ctx, Filter{OwnerID: v.ID, Status: Status(status), First: first})
}

func userTasks(ctx context.Context, p params) (any, error) {
	v, err := p.Context.requireViewer()
	if err != nil {
		return nil, err
	}
	owner := p.Source.(*User)
	if v.ID != owner.ID && v.Role != RoleAdmin {
		return nil, gqlerr.Forbidden("tasks of %s are private", owner.Name)
	}
	status, _ := p.Args["status"].(string)
	return p.Context.Store.List(ctx, Filter{OwnerID: owner.ID, Status: Status(status)})
}

func taskOwner(ctx context.Context, p params) (any, error) {
	t := sourceTask(p.Source)
	store := p.Context.Store
	return executor.Thunk(func() (any, error) {
		u, err := store.User(ctx, t.OwnerID)
		if err != nil || u == nil {
			return nil, err
		}
		return u, nil
	}), nil
}

// taskRelated looks every related task up on its own, so one missing task
// only nulls its own list item.
func taskRelated(ctx context.Context, p params) (any, error) {
	t := sourceTask(p.Source)
	store := p.Context.Store
	items := make([]any, len(t.RelatedIDs))
	for i, id := range t.RelatedIDs {
		items[i] = executor.Thunk(func() (any, error) {
			rel, err := store.Task(ctx, id)
			if err != nil {
				return nil, err
			}
			if rel == nil {
				return nil, gqlerr.NotFound("related task %s was deleted", id)
			}
			return rel, nil
		})
	}
	return items, nil
}

func createTask(ctx context.Context, p params) (any, error) {
	v, err := p.Context.requireViewer()
	if err != nil {
		return nil, err
	}
	input := p.Args["input"].(map[string]any)
	title := strings.TrimSpace(input["title"].(string))
	related, _ := input["relatedIds"].([]any)

	verr := gqlerr.Validation("invalid task input")
	switch {
	case title == "":
		verr = verr.WithViolation("title", "must not be empty")
	case len(title) > maxTitleLength:
		verr = verr.WithViolation("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
	if len(related) > maxRelated {
		verr = verr.WithViolation("relatedIds", fmt.Sprintf("must list at most %d tasks", maxRelated))
	}
	ids := make([]string, 0, len(related))
	for i, raw := range related {
		id := raw.(string)
		rel, err := p.Context.Store.Task(ctx, id)
		if err != nil {
			return nil, err
		}
		if rel == nil {
			verr = verr.WithViolation(fmt.Sprintf("relatedIds[%d]", i), fmt.Sprintf("task %s does not exist", id))
			continue
		}
		ids = append(ids, id)
	}
	if len(verr.Violations) > 0 {
		return nil, verr
	}

	t, err := p.Context.Store.Create(ctx, v.ID, title, ids)
	if errors.Is(err, ErrDuplicateTitle) {
		return nil, gqlerr.Conflict("an open task titled %q already exists", title).WithCause(err)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func completeTask(ctx context.Context, p params) (any, error) {
	t, err := managedTask(ctx, p)
	if err != nil {
		return nil, err
	}
	if t.Done() {
		return nil, gqlerr.Conflict("task %s is already done", t.ID)
	}
	updated, ok, err := p.Context.Store.SetStatus(ctx, t.ID, StatusDone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gqlerr.NotFound("task %s not found", t.ID)
	}
	return &updated, nil
}

func deleteTask(ctx context.Context, p params) (any, error) {
	t, err := managedTask(ctx, p)
	if err != nil {
		return nil, err
	}
	ok, err := p.Context.Store.Delete(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gqlerr.NotFound("task %s not found", t.ID)
	}
	return t.ID, nil
}

// managedTask loads the task named by the id argument and checks the viewer
// may change it.
func managedTask(ctx context.Context, p params) (*Task, error) {
	if _, err := p.Context.requireViewer(); err != nil {
		return nil, err
	}
	id := p.Args["id"].(string)
	t, err := p.Context.Store.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, gqlerr.NotFound("task %s not found", id)
	}
	if !p.Context.canManage(t) {
		return nil, gqlerr.Forbidden("task %s belongs to another user", id)
	}
	return t, nil
}

func sourceTask(source any) *Task {
	switch t := source.(type) {
	case *Task:
		return t
	case Task:
		return &t
	}
	panic(fmt.Sprintf("tasks: unexpected Task source %T", source))
}

func serializeTime(value any) (any, error) {
	switch t := value.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	}
	return nil, fmt.Errorf("Time cannot represent %v (%T)", value, value)
}
