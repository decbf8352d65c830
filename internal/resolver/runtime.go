package resolver

import (
	"context"
	"fmt"
	"reflect"

	executor "github.com/hanpama/reqgraph/internal/executor"
	"github.com/hanpama/reqgraph/internal/gqlerr"
)

type runtime[C any] struct {
	compiled *Compiled[C]
	value    C
}

var _ executor.Runtime = (*runtime[struct{}])(nil)

func (r *runtime[C]) ResolveField(ctx context.Context, info executor.ResolveInfo, source any, args map[string]any) (any, error) {
	fn := r.compiled.fields[Coordinate{Type: info.ParentType, Field: info.FieldName}]
	if fn == nil {
		return DefaultResolve(source, info.FieldName)
	}
	return fn(ctx, Params[C]{
		Context: r.value,
		Source:  source,
		Args:    args,
		Info:    info,
	})
}

// ResolveType uses the bound TypeResolver when there is one. Otherwise the
// value names its type through a TypeName method, a "__typename" map key, or
// the name of its struct type.
func (r *runtime[C]) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if fn := r.compiled.types[abstractType]; fn != nil {
		return fn(ctx, value)
	}
	switch v := value.(type) {
	case interface{ TypeName() string }:
		return v.TypeName(), nil
	case map[string]any:
		if name, ok := v["__typename"].(string); ok {
			return name, nil
		}
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		name := rv.Type().Name()
		if r.compiled.schema.IsPossibleType(abstractType, name) {
			return name, nil
		}
	}
	return "", gqlerr.Internal(fmt.Errorf("cannot determine the concrete type of %T for %s", value, abstractType))
}

func (r *runtime[C]) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if fn := r.compiled.scalars[typeName]; fn != nil {
		return fn(value)
	}
	return serializeLeaf(r.compiled.schema, typeName, value)
}
