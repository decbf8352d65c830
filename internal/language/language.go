package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// Error codes attached to document failures. Both are transport-level
// failures: the document never reaches the executor.
const (
	CodeParseFailed      = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
)

// ParseQuery parses a query document without validating it against a schema.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL, adding the built-in prelude
// (scalars, @skip, @include, @deprecated and introspection types).
func LoadSchema(name, source string) (*SchemaDefinition, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadQuery parses source and validates it against sch. The returned list
// carries extension codes so the transport can report them as-is.
func LoadQuery(sch *SchemaDefinition, source string) (*QueryDocument, ErrorList) {
	if _, err := ParseQuery(source); err != nil {
		return nil, withCode(ErrorList{AsError(err)}, CodeParseFailed)
	}
	doc, errs := gqlparser.LoadQuery(sch, source)
	if len(errs) > 0 {
		return nil, withCode(errs, CodeValidationFailed)
	}
	return doc, nil
}

func withCode(errs ErrorList, code string) ErrorList {
	for _, e := range errs {
		if e.Extensions == nil {
			e.Extensions = map[string]any{}
		}
		if _, ok := e.Extensions["code"]; !ok {
			e.Extensions["code"] = code
		}
	}
	return errs
}

// AsError converts an arbitrary parse failure into a located Error.
func AsError(err error) *Error {
	if ge, ok := err.(*gqlerror.Error); ok {
		return ge
	}
	return &Error{Message: err.Error()}
}
