package executor

import (
	"encoding/json"
	"errors"

	"github.com/hanpama/reqgraph/internal/gqlerr"
	language "github.com/hanpama/reqgraph/internal/language"
)

// Location is a line/column position in the request document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
	// Cause is the error the resolver produced. It never leaves the process.
	Cause error `json:"-"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

func (e GraphQLError) Unwrap() error {
	return e.Cause
}

// Code returns extensions.code, or "" when absent.
func (e GraphQLError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`

	// Rejected is set when the request failed before execution started
	// (operation selection, variable coercion). The encoded result then has
	// no data entry.
	Rejected bool `json:"-"`
}

// MarshalJSON omits data for rejected requests.
func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	if r.Rejected {
		return json.Marshal(struct {
			Errors []GraphQLError `json:"errors"`
		}{r.Errors})
	}
	type plain ExecutionResult
	return json.Marshal(plain(r))
}

func rejectedResult(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{requestError(message)}, Rejected: true}
}

// NewRequestError builds an error that is not attached to a field, such as a
// context factory failure. The gqlerr kind of err supplies extensions.code.
func NewRequestError(err error) GraphQLError {
	return GraphQLError{
		Message:    err.Error(),
		Extensions: gqlerr.ExtensionsOf(err),
		Cause:      err,
	}
}

// locatedError converts a resolver failure into an error at path.
func locatedError(err error, path Path, fields []*language.Field) GraphQLError {
	var ge GraphQLError
	if errors.As(err, &ge) {
		ge.Path = path
		if ge.Locations == nil {
			ge.Locations = fieldLocations(fields)
		}
		return ge
	}
	return GraphQLError{
		Message:    err.Error(),
		Locations:  fieldLocations(fields),
		Path:       path,
		Extensions: gqlerr.ExtensionsOf(err),
		Cause:      err,
	}
}

func fieldLocations(fields []*language.Field) []Location {
	if len(fields) == 0 || fields[0] == nil || fields[0].Position == nil {
		return nil
	}
	return []Location{{Line: fields[0].Position.Line, Column: fields[0].Position.Column}}
}
