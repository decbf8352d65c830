package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	language "github.com/hanpama/reqgraph/internal/language"
	schema "github.com/hanpama/reqgraph/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// resultOpts compares results without the in-process cause and document
// locations; nil and empty error lists are equal.
var resultOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.IgnoreFields(GraphQLError{}, "Cause", "Locations"),
}

func assertResult(t *testing.T, want, got *ExecutionResult) {
	t.Helper()
	if diff := cmp.Diff(want, got, resultOpts); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func assertCalls(t *testing.T, want, got []Call) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

func internalErr(message string, path Path) GraphQLError {
	return GraphQLError{Message: message, Path: path, Extensions: map[string]any{"code": "INTERNAL_ERROR"}}
}

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("").AddBuiltins()
	if query != nil {
		sch.SetQueryType(query.Name)
		sch.AddType(query)
	}
	for _, t := range additional {
		sch.AddType(t)
	}
	return sch
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, field := range fields {
		t.AddField(field)
	}
	return t
}

func field(name string, typ *schema.TypeRef) *schema.Field {
	return schema.NewField(name, "", typ)
}

func str() *schema.TypeRef { return schema.NamedType("String") }

func nonNull(t *schema.TypeRef) *schema.TypeRef { return schema.NonNullType(t) }

func list(t *schema.TypeRef) *schema.TypeRef { return schema.ListType(t) }
