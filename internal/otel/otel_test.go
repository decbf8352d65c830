package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/reqgraph/internal/eventbus"
	events "github.com/hanpama/reqgraph/internal/events"
	"github.com/hanpama/reqgraph/internal/gqlerr"
	reqid "github.com/hanpama/reqgraph/internal/reqid"
)

func TestSubscribe_RequestSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	bus := eventbus.New()
	unsubscribe := Subscribe(bus, tp.Tracer("test"))
	defer unsubscribe()

	ctx, rid := reqid.NewContext(context.Background())
	r := httptest.NewRequest("POST", "/graphql", nil)

	eventbus.Publish(ctx, bus, events.HTTPStart{Request: r, RequestID: rid})
	eventbus.Publish(ctx, bus, events.ContextBuilt{OperationName: "Viewer"})
	eventbus.Publish(ctx, bus, events.GraphQLStart{OperationName: "Viewer", OperationType: "query"})
	eventbus.Publish(ctx, bus, events.GraphQLFinish{
		OperationName: "Viewer",
		OperationType: "query",
		Errors:        []error{gqlerr.NotFound("gone"), errors.New("boom")},
	})
	eventbus.Publish(ctx, bus, events.HTTPFinish{Request: r, RequestID: rid, Status: 200})

	spans := rec.Ended()
	require.Len(t, spans, 2)
	op, http := spans[0], spans[1]
	assert.Equal(t, "graphql.operation", op.Name())
	assert.Equal(t, "http.request", http.Name())
	assert.Equal(t, http.SpanContext().SpanID(), op.Parent().SpanID())
	assert.Len(t, op.Events(), 1, "only the internal error is recorded")
	require.Len(t, http.Events(), 1)
	assert.Equal(t, "context.built", http.Events()[0].Name)
}

func TestSetup_NoEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), eventbus.New(), "", "reqgraph")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
