package main

import (
	"context"
	"net/http"

	"github.com/hanpama/reqgraph/internal/config"
	"github.com/hanpama/reqgraph/internal/eventbus"
	"github.com/hanpama/reqgraph/internal/otel"
	"github.com/hanpama/reqgraph/internal/server"
	"github.com/hanpama/reqgraph/internal/tasks"
	"github.com/hanpama/reqgraph/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

// initTelemetry wires tracing, metrics and logging to a new event bus. A
// tracer that cannot start is logged and skipped.
func initTelemetry(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (*eventbus.Bus, func()) {
	bus := eventbus.New()
	unsubs := []func(){
		telemetry.NewMetrics(prometheus.DefaultRegisterer).Subscribe(bus),
		telemetry.SubscribeLogger(bus, logger),
	}

	tracerShutdown, err := otel.Setup(ctx, bus, cfg.OTELEndpoint, cfg.ServiceName)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		tracerShutdown = func(context.Context) error { return nil }
	}
	return bus, func() {
		if err := tracerShutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
		for _, u := range unsubs {
			u()
		}
	}
}

// initGraphQL builds the task tracker and its HTTP handler.
func initGraphQL(cfg *config.Config, bus *eventbus.Bus) (http.Handler, error) {
	compiled, err := tasks.New()
	if err != nil {
		return nil, err
	}
	store := tasks.NewStore(tasks.DefaultUsers()...)

	opts := []server.Option{
		server.WithTimeout(cfg.RequestTimeout),
		server.WithMaxBodyBytes(cfg.MaxBodyBytes),
		server.WithGraphiQL(cfg.GraphiQL),
		server.WithIntrospection(cfg.Introspection),
		server.WithProduction(cfg.Production()),
		server.WithMaxConcurrency(cfg.MaxConcurrency),
		server.WithEventBus(bus),
	}
	if len(cfg.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.CORSOrigins...))
	}
	if cfg.Pretty {
		opts = append(opts, server.WithPretty())
	}
	return server.New(compiled, tasks.NewFactory(store, tasks.DefaultTokens), opts...)
}
