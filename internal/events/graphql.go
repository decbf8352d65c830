package events

import "time"

// ContextBuilt is emitted after the request's context factory ran. Err is
// set when it failed; resolution does not start in that case.
type ContextBuilt struct {
	OperationName string
	Err           error
	Duration      time.Duration
}

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation. Errors holds
// the field errors of the response, before masking.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// DocumentRejected is emitted when a document fails parsing or validation
// and never reaches the executor.
type DocumentRejected struct {
	Code   string
	Errors []error
}
