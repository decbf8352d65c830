package telemetry

import (
	"context"
	"errors"

	eventbus "github.com/hanpama/reqgraph/internal/eventbus"
	events "github.com/hanpama/reqgraph/internal/events"
	executor "github.com/hanpama/reqgraph/internal/executor"
	"github.com/hanpama/reqgraph/internal/gqlerr"
	reqid "github.com/hanpama/reqgraph/internal/reqid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new OpenTelemetry-aware zap logger.
func NewLogger(level string) (*otelzap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.Encoding = "json"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	zapLogger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return otelzap.New(zapLogger), nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug", "DEBUG":
		return zapcore.DebugLevel
	case "warn", "WARN":
		return zapcore.WarnLevel
	case "error", "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SubscribeLogger logs the request lifecycle published on bus. Internal
// errors are logged with their full cause, since the response only carries a
// masked message in production.
func SubscribeLogger(bus *eventbus.Bus, logger *otelzap.Logger) (unsubscribe func()) {
	l := &logSubscriber{logger: logger}
	unsubs := []func(){
		eventbus.Subscribe(bus, l.graphqlFinish),
		eventbus.Subscribe(bus, l.contextBuilt),
		eventbus.Subscribe(bus, l.documentRejected),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

type logSubscriber struct {
	logger *otelzap.Logger
}

func requestField(ctx context.Context) zap.Field {
	rid, _ := reqid.FromContext(ctx)
	return zap.String("request_id", rid)
}

func (l *logSubscriber) graphqlFinish(ctx context.Context, e events.GraphQLFinish) {
	log := l.logger.Ctx(ctx)
	for _, err := range e.Errors {
		if gqlerr.CodeOf(err) != gqlerr.CodeInternal {
			continue
		}
		fields := []zap.Field{requestField(ctx), zap.Error(err)}
		var ge executor.GraphQLError
		if errors.As(err, &ge) {
			fields = append(fields, zap.Any("path", ge.Path))
			if ge.Cause != nil {
				fields = append(fields, zap.NamedError("cause", ge.Cause))
			}
		}
		log.Error("Resolver failed", fields...)
	}
	log.Debug("Operation finished",
		requestField(ctx),
		zap.String("operation", e.OperationName),
		zap.String("type", e.OperationType),
		zap.Int("errors", len(e.Errors)),
		zap.Duration("duration", e.Duration),
	)
}

func (l *logSubscriber) contextBuilt(ctx context.Context, e events.ContextBuilt) {
	if e.Err == nil {
		return
	}
	level := zapcore.WarnLevel
	if gqlerr.CodeOf(e.Err) == gqlerr.CodeInternal {
		level = zapcore.ErrorLevel
	}
	if ce := l.logger.Check(level, "Context factory failed"); ce != nil {
		ce.Write(requestField(ctx), zap.String("operation", e.OperationName), zap.Error(e.Err))
	}
}

func (l *logSubscriber) documentRejected(ctx context.Context, e events.DocumentRejected) {
	l.logger.Ctx(ctx).Debug("Document rejected",
		requestField(ctx),
		zap.String("code", e.Code),
		zap.Errors("errors", e.Errors),
	)
}
