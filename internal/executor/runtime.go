package executor

import (
	"context"

	language "github.com/hanpama/reqgraph/internal/language"
	schema "github.com/hanpama/reqgraph/internal/schema"
)

// Runtime defines the host integration surface for field resolution, abstract
// type resolution, and leaf-value serialization used by the Executor.
//
// General contract
//   - A Runtime is bound to one request. Everything a resolver may need from
//     the request (the request context value, the principal, data-access
//     handles) is captured by the Runtime, not by the Executor.
//   - The Executor calls ResolveField once per field instance, always after the
//     parent value is available. For query operations it may call ResolveField
//     for sibling fields concurrently, so implementations must be safe for
//     concurrent use. For mutation operations root fields are resolved one at a
//     time in document order.
//   - Errors returned from any method are converted into located GraphQL
//     errors. If the field's return type is Non-Null, the Executor propagates
//     the null up to the nearest nullable ancestor.
//   - Panics raised by ResolveField or by a returned Thunk are recovered and
//     reported as INTERNAL_ERROR field errors.
//   - Implementations must not mutate source or args values.
//
// Deferred values
//   - ResolveField may return a Thunk instead of a value. The Executor calls it
//     later, possibly on another goroutine, and only the branch below that
//     field waits for it. Thunks may also appear as list items.
//
// Abstract types and leaf values
//   - ResolveType must return the concrete type name for interface/union values.
//   - SerializeLeafValue must coerce/serialize scalars and enums into JSON-safe
//     Go values (string, float64, int, bool). For enums, return the enum name as
//     string.
//
// Cancellation
//   - ctx is the context given to ExecuteRequest. Implementations should pass
//     it to any I/O they perform and give up when it is done.
type Runtime interface {
	// ResolveField resolves one field of one parent value.
	//
	// Return (nil, nil) to produce a GraphQL null. A non-nil value whose
	// declared type is composite is completed by the Executor against the
	// field's sub-selection.
	ResolveField(ctx context.Context, info ResolveInfo, source any, args map[string]any) (any, error)

	// ResolveType determines the concrete runtime type name for a value of an
	// abstract GraphQL type (interface or union).
	//
	// Must return a type name that is a possible type of the abstractType in the
	// provided schema; otherwise return an error.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe Go
	// value according to the GraphQL schema and custom scalar mappings.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// ResolveInfo describes the field instance being resolved.
type ResolveInfo struct {
	// ParentType is the object type name owning the field (e.g. "User"); for
	// root fields it is the root type name.
	ParentType string
	// FieldName is the schema field name (never the alias).
	FieldName string
	// ReturnType is the declared type of the field.
	ReturnType *schema.TypeRef
	// Path is the response path of the field, including list indices.
	Path Path
	// Fields are the document nodes merged into this response key.
	Fields    []*language.Field
	Operation *language.OperationDefinition
	Variables map[string]any
	Schema    *schema.Schema
}

// Thunk is a deferred field value. The Executor invokes it at most once.
type Thunk func() (any, error)
