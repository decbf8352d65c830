// Package resolver binds typed Go functions to schema fields and turns the
// bindings into an executor.Runtime bound to one request's context value.
//
// Bindings are checked when they are registered and when the registry is
// compiled, so a missing or misspelled resolver fails at startup rather than
// on the first request that selects the field.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	executor "github.com/hanpama/reqgraph/internal/executor"
	schema "github.com/hanpama/reqgraph/internal/schema"
)

// Coordinate names one field of one object type.
type Coordinate struct {
	Type  string
	Field string
}

func (c Coordinate) String() string { return c.Type + "." + c.Field }

// Params is what a field resolver receives. Context is the request's context
// value, passed by value.
type Params[C any] struct {
	Context C
	Source  any
	Args    map[string]any
	Info    executor.ResolveInfo
}

// Func resolves one field. It may return an executor.Thunk to defer work.
type Func[C any] func(ctx context.Context, p Params[C]) (any, error)

// TypeResolver names the concrete object type of a value returned for an
// interface or union.
type TypeResolver func(ctx context.Context, value any) (string, error)

// Serializer converts a custom scalar value into its response form.
type Serializer func(value any) (any, error)

// Registry collects bindings for a schema. It is not safe for concurrent use;
// build it once at startup and Compile it.
type Registry[C any] struct {
	schema  *schema.Schema
	fields  map[Coordinate]Func[C]
	types   map[string]TypeResolver
	scalars map[string]Serializer
}

func NewRegistry[C any](sch *schema.Schema) *Registry[C] {
	return &Registry[C]{
		schema:  sch,
		fields:  map[Coordinate]Func[C]{},
		types:   map[string]TypeResolver{},
		scalars: map[string]Serializer{},
	}
}

// Bind registers fn for typeName.fieldName. The type must be an object type
// declaring the field, and each field can be bound once.
func (r *Registry[C]) Bind(typeName, fieldName string, fn Func[C]) error {
	coord := Coordinate{Type: typeName, Field: fieldName}
	if fn == nil {
		return fmt.Errorf("bind %s: nil resolver", coord)
	}
	t := r.schema.Types[typeName]
	if t == nil {
		return fmt.Errorf("bind %s: unknown type %s", coord, typeName)
	}
	if t.Kind != schema.TypeKindObject {
		return fmt.Errorf("bind %s: %s is %s, not an object type", coord, typeName, t.Kind)
	}
	if t.Field(fieldName) == nil {
		return fmt.Errorf("bind %s: type %s has no field %s", coord, typeName, fieldName)
	}
	if _, dup := r.fields[coord]; dup {
		return fmt.Errorf("bind %s: already bound", coord)
	}
	r.fields[coord] = fn
	return nil
}

// BindType registers the type resolver for an interface or union.
func (r *Registry[C]) BindType(abstractType string, fn TypeResolver) error {
	t := r.schema.Types[abstractType]
	if t == nil || !t.Kind.IsAbstract() {
		return fmt.Errorf("bind type %s: not an interface or union", abstractType)
	}
	if _, dup := r.types[abstractType]; dup {
		return fmt.Errorf("bind type %s: already bound", abstractType)
	}
	r.types[abstractType] = fn
	return nil
}

// BindScalar registers the serializer for a custom scalar.
func (r *Registry[C]) BindScalar(name string, fn Serializer) error {
	t := r.schema.Types[name]
	if t == nil || t.Kind != schema.TypeKindScalar {
		return fmt.Errorf("bind scalar %s: not a scalar type", name)
	}
	if schema.IsBuiltinScalar(name) {
		return fmt.Errorf("bind scalar %s: built-in scalars cannot be rebound", name)
	}
	if _, dup := r.scalars[name]; dup {
		return fmt.Errorf("bind scalar %s: already bound", name)
	}
	r.scalars[name] = fn
	return nil
}

// MustBind is Bind that panics on error, for static registration code.
func (r *Registry[C]) MustBind(typeName, fieldName string, fn Func[C]) *Registry[C] {
	if err := r.Bind(typeName, fieldName, fn); err != nil {
		panic(err)
	}
	return r
}

// Compile checks that every root field has a resolver and marks bound fields
// as Async on the schema. The registry must not be used afterwards.
func (r *Registry[C]) Compile() (*Compiled[C], error) {
	var errs []error
	for _, root := range []string{r.schema.QueryType, r.schema.MutationType} {
		t := r.schema.Types[root]
		if t == nil {
			continue
		}
		for _, f := range t.Fields {
			if _, ok := r.fields[Coordinate{Type: root, Field: f.Name}]; !ok {
				errs = append(errs, fmt.Errorf("%s.%s has no resolver", root, f.Name))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for coord := range r.fields {
		r.schema.Types[coord.Type].Field(coord.Field).Async = true
	}
	return &Compiled[C]{
		schema:  r.schema,
		fields:  r.fields,
		types:   r.types,
		scalars: r.scalars,
	}, nil
}

// Compiled is an immutable set of bindings. It is safe for concurrent use.
type Compiled[C any] struct {
	schema  *schema.Schema
	fields  map[Coordinate]Func[C]
	types   map[string]TypeResolver
	scalars map[string]Serializer
}

func (c *Compiled[C]) Schema() *schema.Schema { return c.schema }

// Coordinates lists the bound fields in a stable order.
func (c *Compiled[C]) Coordinates() []Coordinate {
	out := make([]Coordinate, 0, len(c.fields))
	for coord := range c.fields {
		out = append(out, coord)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Runtime returns the executor.Runtime for one request. Every resolver it
// invokes receives value as Params.Context.
func (c *Compiled[C]) Runtime(value C) executor.Runtime {
	return &runtime[C]{compiled: c, value: value}
}
