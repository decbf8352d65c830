package executor

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/reqgraph/internal/gqlerr"
	language "github.com/hanpama/reqgraph/internal/language"
	schema "github.com/hanpama/reqgraph/internal/schema"
)

type Path []PathElement

type PathElement any

// executionState holds the state of one operation's execution. It is shared
// by the goroutines resolving sibling branches and is read-only once built.
type executionState struct {
	ctx            context.Context
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	operation      *language.OperationDefinition
	variableValues map[string]any
	limit          int
}

// completion is the outcome of completing one value. violated reports a
// Non-Null violation that the nearest nullable ancestor must absorb.
type completion struct {
	value    any
	errors   []GraphQLError
	violated bool
	omit     bool
}

type Executor struct {
	schema         *schema.Schema
	maxConcurrency int
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxConcurrency bounds the goroutines started for one selection set or
// one list. Zero or less means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(e *Executor) { e.maxConcurrency = n }
}

func NewExecutor(schema *schema.Schema, opts ...Option) *Executor {
	e := &Executor{schema: schema}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the schema the executor runs against.
func (e *Executor) Schema() *schema.Schema { return e.schema }

// ExecuteRequest executes one operation of an already validated document. The
// runtime is bound to the request; rootValue is passed as the source of root
// fields.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	runtime Runtime,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
) *ExecutionResult {
	operation, err := getOperation(document, operationName)
	if err != nil {
		return rejectedResult(err.Error())
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return rejectedResult(err.Error())
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		return rejectedResult("subscriptions are not supported")
	default:
		return rejectedResult(fmt.Sprintf("unsupported operation type: %s", operation.Operation))
	}

	if rootType == nil {
		return rejectedResult(fmt.Sprintf("root type not found for %s operation", operation.Operation))
	}

	state := &executionState{
		ctx:            ctx,
		runtime:        runtime,
		schema:         e.schema,
		document:       document,
		operation:      operation,
		variableValues: coercedVariableValues,
		limit:          e.maxConcurrency,
	}

	// Mutation root fields run one after another so that each sees the
	// effects of the previous one.
	serial := operation.Operation == language.Mutation
	data, errs, violated := state.executeSelectionSet(rootType, operation.SelectionSet, rootValue, Path{}, serial)
	if violated {
		return &ExecutionResult{Data: nil, Errors: errs}
	}
	return &ExecutionResult{Data: data, Errors: errs}
}

// executeSelectionSet resolves the fields of one object value. Fields that
// may run concurrently are started on their own goroutine; the results are
// merged in document order so that errors stay in pre-order.
func (s *executionState) executeSelectionSet(objectType *schema.Type, selectionSet language.SelectionSet, source any, path Path, serial bool) (map[string]any, []GraphQLError, bool) {
	grouped := collectFields(s, objectType, selectionSet).orderedFields()
	results := make([]completion, len(grouped))

	var g errgroup.Group
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for i, cf := range grouped {
		fields := cf.Fields
		fieldPath := appendPath(path, cf.ResponseName)
		fieldName := fields[0].Name

		if fieldName == "__typename" {
			results[i] = completion{value: objectType.Name}
			continue
		}

		fieldDef := objectType.Field(fieldName)
		if fieldDef == nil {
			results[i] = completion{omit: true, errors: []GraphQLError{{
				Message:    fmt.Sprintf("Cannot query field '%s' on type '%s'", fieldName, objectType.Name),
				Locations:  fieldLocations(fields),
				Path:       fieldPath,
				Extensions: map[string]any{"code": gqlerr.CodeValidation},
			}}}
			continue
		}

		if !serial && fieldDef.Async {
			g.Go(func() error {
				raw, err := s.resolveField(objectType, fieldDef, fields, source, fieldPath)
				results[i] = s.completeField(fieldDef, fields, raw, err, fieldPath)
				return nil
			})
			continue
		}

		raw, err := s.resolveField(objectType, fieldDef, fields, source, fieldPath)
		if _, deferred := raw.(Thunk); deferred && err == nil && !serial {
			g.Go(func() error {
				results[i] = s.completeField(fieldDef, fields, raw, nil, fieldPath)
				return nil
			})
			continue
		}
		results[i] = s.completeField(fieldDef, fields, raw, err, fieldPath)
	}
	_ = g.Wait()

	data := make(map[string]any, len(results))
	var errs []GraphQLError
	violated := false
	for i, r := range results {
		errs = append(errs, r.errors...)
		if r.omit {
			continue
		}
		if r.violated {
			violated = true
			continue
		}
		data[grouped[i].ResponseName] = r.value
	}
	if violated {
		return nil, errs, true
	}
	return data, errs, false
}

// resolveField coerces arguments and invokes the runtime. Panics become
// INTERNAL_ERROR field errors.
func (s *executionState) resolveField(parentType *schema.Type, fieldDef *schema.Field, fields []*language.Field, source any, path Path) (value any, err error) {
	if err := s.ctx.Err(); err != nil {
		return nil, gqlerr.Internal(err)
	}
	args, err := coerceArgumentValues(s.schema, fieldDef, fields[0].Arguments, s.variableValues)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, panicError(r)
		}
	}()
	info := ResolveInfo{
		ParentType: parentType.Name,
		FieldName:  fieldDef.Name,
		ReturnType: fieldDef.Type,
		Path:       path,
		Fields:     fields,
		Operation:  s.operation,
		Variables:  s.variableValues,
		Schema:     s.schema,
	}
	return s.runtime.ResolveField(s.ctx, info, source, args)
}

func (s *executionState) completeField(fieldDef *schema.Field, fields []*language.Field, raw any, err error, path Path) completion {
	if err != nil {
		return completion{
			errors:   []GraphQLError{locatedError(err, path, fields)},
			violated: schema.IsNonNull(fieldDef.Type),
		}
	}
	return s.completeValue(fieldDef.Type, fields, raw, path)
}

// awaitThunk runs a deferred value, recovering panics.
func awaitThunk(thunk Thunk) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, panicError(r)
		}
	}()
	return thunk()
}

// serializeLeafValue calls the runtime serializer, recovering panics.
func (s *executionState) serializeLeafValue(typeName string, value any) (serialized any, err error) {
	defer func() {
		if r := recover(); r != nil {
			serialized, err = nil, panicError(r)
		}
	}()
	return s.runtime.SerializeLeafValue(s.ctx, typeName, value)
}

// resolveType calls the runtime type resolver, recovering panics.
func (s *executionState) resolveType(abstractType string, value any) (typeName string, err error) {
	defer func() {
		if r := recover(); r != nil {
			typeName, err = "", panicError(r)
		}
	}()
	return s.runtime.ResolveType(s.ctx, abstractType, value)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return gqlerr.Internal(fmt.Errorf("panic: %w", err))
	}
	return gqlerr.Internal(fmt.Errorf("panic: %v", r))
}

// completeValue completes a value
func (s *executionState) completeValue(fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) completion {
	if thunk, ok := result.(Thunk); ok && thunk != nil {
		v, err := awaitThunk(thunk)
		if err != nil {
			return completion{
				errors:   []GraphQLError{locatedError(err, path, fields)},
				violated: schema.IsNonNull(fieldType),
			}
		}
		result = v
	}

	if schema.IsNonNull(fieldType) {
		c := s.completeValue(schema.Unwrap(fieldType), fields, result, path)
		if c.violated {
			return c
		}
		if isNullish(c.value) {
			if !hasErrorAtPath(c.errors, path) {
				c.errors = append(c.errors, GraphQLError{
					Message:    fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)),
					Locations:  fieldLocations(fields),
					Path:       path,
					Extensions: map[string]any{"code": gqlerr.CodeInternal},
				})
			}
			c.value = nil
			c.violated = true
		}
		return c
	}

	if isNullish(result) {
		return completion{}
	}

	var c completion
	if schema.IsList(fieldType) {
		c = s.completeListValue(fieldType, fields, result, path)
	} else {
		c = s.completeNamedValue(schema.GetNamedType(fieldType), fields, result, path)
	}
	// A nullable position absorbs a Non-Null violation from below.
	if c.violated {
		c.value = nil
		c.violated = false
	}
	return c
}

func (s *executionState) completeNamedValue(namedType string, fields []*language.Field, result any, path Path) completion {
	typeObj := s.schema.Types[namedType]
	if typeObj == nil {
		return errorCompletion(fmt.Sprintf("Unknown type: %s", namedType), path, fields)
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := s.serializeLeafValue(namedType, result)
		if err != nil {
			return completion{errors: []GraphQLError{locatedError(err, path, fields)}}
		}
		return completion{value: serialized}
	case schema.TypeKindObject:
		return s.completeObjectValue(typeObj, fields, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return s.completeAbstractValue(typeObj, fields, result, path)
	default:
		return errorCompletion(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), path, fields)
	}
}

// completeListValue completes a list value. Items that are thunks are awaited
// concurrently; results keep their positions.
func (s *executionState) completeListValue(listType *schema.TypeRef, fields []*language.Field, result any, path Path) completion {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return errorCompletion(fmt.Sprintf("Expected list value, got %T", result), path, fields)
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	results := make([]completion, len(items))
	var g errgroup.Group
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for i, item := range items {
		p := appendPath(path, i)
		if _, deferred := item.(Thunk); deferred {
			g.Go(func() error {
				results[i] = s.completeValue(inner, fields, item, p)
				return nil
			})
			continue
		}
		results[i] = s.completeValue(inner, fields, item, p)
	}
	_ = g.Wait()

	completed := make([]any, len(items))
	var errs []GraphQLError
	violated := false
	for i, r := range results {
		errs = append(errs, r.errors...)
		if r.violated {
			// Propagate null to the list field; the error is already recorded
			violated = true
		}
		completed[i] = r.value
	}
	if violated {
		return completion{errors: errs, violated: true}
	}
	return completion{value: completed, errors: errs}
}

func (s *executionState) completeObjectValue(objectType *schema.Type, fields []*language.Field, result any, path Path) completion {
	sub := mergeSelectionSets(fields)
	data, errs, violated := s.executeSelectionSet(objectType, sub, result, path, false)
	if violated {
		return completion{errors: errs, violated: true}
	}
	return completion{value: data, errors: errs}
}

func (s *executionState) completeAbstractValue(abstractType *schema.Type, fields []*language.Field, result any, path Path) completion {
	typeName, err := s.resolveType(abstractType.Name, result)
	if err != nil {
		return completion{errors: []GraphQLError{locatedError(err, path, fields)}}
	}
	objectType := s.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		return errorCompletion(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType.Name, typeName), path, fields)
	}
	if !s.schema.IsPossibleType(abstractType.Name, typeName) {
		return errorCompletion(fmt.Sprintf("Runtime Object type %s is not a possible type for %s", typeName, abstractType.Name), path, fields)
	}
	return s.completeObjectValue(objectType, fields, result, path)
}

func errorCompletion(message string, path Path, fields []*language.Field) completion {
	return completion{errors: []GraphQLError{{
		Message:    message,
		Locations:  fieldLocations(fields),
		Path:       path,
		Extensions: map[string]any{"code": gqlerr.CodeInternal},
	}}}
}

func requestError(message string) GraphQLError {
	return GraphQLError{Message: message, Extensions: map[string]any{"code": gqlerr.CodeValidation}}
}

func pathToString(path Path) string {
	var b strings.Builder
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// getOperation retrieves the operation from the document
func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if document == nil || len(document.Operations) == 0 {
		return nil, fmt.Errorf("document contains no operations")
	}
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0], nil
		}
		return nil, fmt.Errorf("operation name is required when the document contains multiple operations")
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op, nil
		}
	}
	return nil, fmt.Errorf("operation not found: %s", operationName)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return schema.NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return schema.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

// hasErrorAtPath reports whether an error with the given path already exists.
func hasErrorAtPath(errs []GraphQLError, path Path) bool {
	for _, err := range errs {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
