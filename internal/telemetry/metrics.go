package telemetry

import (
	"context"
	"strconv"

	eventbus "github.com/hanpama/reqgraph/internal/eventbus"
	events "github.com/hanpama/reqgraph/internal/events"
	"github.com/hanpama/reqgraph/internal/gqlerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OperationsTotal     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	FieldErrors         *prometheus.CounterVec
	ContextFailures     *prometheus.CounterVec
	DocumentsRejected   *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqgraph_http_requests_total",
				Help: "Total number of HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqgraph_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds by method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqgraph_operations_total",
				Help: "Total number of executed GraphQL operations by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqgraph_operation_duration_seconds",
				Help:    "GraphQL operation execution time in seconds by type",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		FieldErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqgraph_field_errors_total",
				Help: "Total field errors in responses by error code",
			},
			[]string{"code"},
		),
		ContextFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqgraph_context_failures_total",
				Help: "Total context factory failures by error code",
			},
			[]string{"code"},
		),
		DocumentsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqgraph_documents_rejected_total",
				Help: "Total documents rejected before execution by error code",
			},
			[]string{"code"},
		),
	}
}

// Subscribe updates the metrics from the lifecycle events on bus.
func (m *Metrics) Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(bus, m.httpFinish),
		eventbus.Subscribe(bus, m.graphqlFinish),
		eventbus.Subscribe(bus, m.contextBuilt),
		eventbus.Subscribe(bus, m.documentRejected),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (m *Metrics) httpFinish(_ context.Context, e events.HTTPFinish) {
	m.HTTPRequestsTotal.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
}

func (m *Metrics) graphqlFinish(_ context.Context, e events.GraphQLFinish) {
	outcome := "ok"
	if len(e.Errors) > 0 {
		outcome = "partial"
	}
	m.OperationsTotal.WithLabelValues(e.OperationType, outcome).Inc()
	m.OperationDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
	for _, err := range e.Errors {
		m.FieldErrors.WithLabelValues(gqlerr.CodeOf(err)).Inc()
	}
}

func (m *Metrics) contextBuilt(_ context.Context, e events.ContextBuilt) {
	if e.Err != nil {
		m.ContextFailures.WithLabelValues(gqlerr.CodeOf(e.Err)).Inc()
	}
}

func (m *Metrics) documentRejected(_ context.Context, e events.DocumentRejected) {
	m.DocumentsRejected.WithLabelValues(e.Code).Inc()
}
