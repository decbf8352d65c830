package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/reqgraph/internal/eventbus"
	events "github.com/hanpama/reqgraph/internal/events"
	"github.com/hanpama/reqgraph/internal/gqlerr"
	reqid "github.com/hanpama/reqgraph/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "github.com/hanpama/reqgraph"

// Setup configures OpenTelemetry and attaches bus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(bus, tp.Tracer(instrumentationName))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscribe records spans for the request lifecycle events on bus:
// http.request, with graphql.operation as its child. Context factory runs are
// recorded as span events of the operation's HTTP span.
func Subscribe(bus *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	unsubs := []func(){
		eventbus.Subscribe(bus, s.httpStart),
		eventbus.Subscribe(bus, s.httpFinish),
		eventbus.Subscribe(bus, s.contextBuilt),
		eventbus.Subscribe(bus, s.graphqlStart),
		eventbus.Subscribe(bus, s.graphqlFinish),
		eventbus.Subscribe(bus, s.documentRejected),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // rid -> trace.Span
	gqlSpans  sync.Map // rid -> trace.Span
}

func (s *subscriber) httpStart(ctx context.Context, e events.HTTPStart) {
	_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(
		semconv.HTTPMethodKey.String(e.Request.Method),
		attribute.String("http.target", e.Request.URL.Path),
		attribute.String("request.id", e.RequestID),
	)
	s.httpSpans.Store(e.RequestID, span)
}

func (s *subscriber) httpFinish(ctx context.Context, e events.HTTPFinish) {
	v, ok := s.httpSpans.LoadAndDelete(e.RequestID)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
	if e.Status >= 500 {
		span.SetStatus(codes.Error, "")
	}
	span.End()
}

func (s *subscriber) contextBuilt(ctx context.Context, e events.ContextBuilt) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.httpSpans.Load(rid)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{attribute.Int64("duration_us", e.Duration.Microseconds())}
	if e.Err != nil {
		attrs = append(attrs, attribute.String("error.code", gqlerr.CodeOf(e.Err)))
	}
	v.(trace.Span).AddEvent("context.built", trace.WithAttributes(attrs...))
}

func (s *subscriber) graphqlStart(ctx context.Context, e events.GraphQLStart) {
	rid, _ := reqid.FromContext(ctx)
	parent := ctx
	if v, ok := s.httpSpans.Load(rid); ok {
		parent = trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	_, span := s.tracer.Start(parent, "graphql.operation")
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.OperationName),
		attribute.String("graphql.operation.type", e.OperationType),
	)
	s.gqlSpans.Store(rid, span)
}

func (s *subscriber) graphqlFinish(ctx context.Context, e events.GraphQLFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.gqlSpans.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
	for _, err := range e.Errors {
		if gqlerr.CodeOf(err) == gqlerr.CodeInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func (s *subscriber) documentRejected(ctx context.Context, e events.DocumentRejected) {
	rid, _ := reqid.FromContext(ctx)
	if v, ok := s.httpSpans.Load(rid); ok {
		v.(trace.Span).AddEvent("graphql.document.rejected",
			trace.WithAttributes(attribute.String("error.code", e.Code), attribute.Int("error.count", len(e.Errors))))
	}
}
