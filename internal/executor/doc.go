// Package executor implements a depth-first GraphQL executor that resolves
// independent branches concurrently, with explicit runtime hooks for field
// resolution, abstract-type resolution, and leaf serialization.
//
// # Overview
//
// The executor is bound to a schema once and executes any number of requests.
// Each call to ExecuteRequest receives the Runtime for that request, so
// resolvers can close over per-request state (the request context value, a
// logger, loaders) without the executor knowing about it.
//
// # Preparation
//
// Before execution, the executor:
//  1. Chooses the operation by name, or by uniqueness when no name is given.
//  2. Coerces the provided variables against the operation's variable
//     definitions. Errors here stop execution and produce a result with no
//     data.
//  3. Determines the root object type (Query or Mutation). Subscriptions are
//     rejected.
//
// Documents are expected to be validated already; see the language package.
//
// # Execution Model
//
// Fields of a selection set are collected in document order, honoring
// @skip/@include and fragment type conditions. Each field is then resolved:
//
//   - A field marked Async starts on its own goroutine.
//   - A synchronous field is resolved inline. If it returns a Thunk, the rest
//     of its completion continues on its own goroutine so siblings are not
//     held up.
//   - List items that are Thunks are awaited concurrently.
//
// The selection set returns once all of its fields completed. A field's
// children are resolved only after the field itself produced a value, so
// parent-before-child ordering always holds.
//
// Mutation root fields are the exception: they run one after another in
// document order, each finishing (including its whole subtree) before the
// next starts. Nested selections inside a mutation result are concurrent as
// usual.
//
// WithMaxConcurrency bounds the goroutines started for one selection set or
// one list.
//
// # Completion
//
// Values are completed according to the return type:
//
//   - Non-Null: a null (including a typed nil) becomes an error and the null
//     propagates to the nearest nullable ancestor. If none exists the whole
//     data is null.
//   - List: any slice or array is accepted; each item is completed with its
//     index appended to the path.
//   - Scalar and Enum: Runtime.SerializeLeafValue.
//   - Object: the merged sub-selection is executed against the value.
//   - Interface and Union: Runtime.ResolveType picks the concrete type, which
//     must be a possible type of the abstract one.
//
// # Errors
//
// Resolver errors are recorded with the response path and the locations of
// the field nodes; their extensions carry the code derived from the gqlerr
// kind, or INTERNAL_ERROR for plain errors. Panics in resolvers and thunks are
// recovered into INTERNAL_ERROR field errors. Arguments that cannot be
// coerced produce a VALIDATION_ERROR and the resolver is not called.
//
// Errors are merged in document order rather than completion order, so the
// error list follows a pre-order traversal of the document regardless of
// which branches finished first.
//
// # Concurrency
//
// Runtime implementations must be safe for concurrent use: ResolveField may
// be called from several goroutines at once for the same request.
package executor
