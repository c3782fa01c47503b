// Package audit writes every ledger event to a dedicated structured log
// that off-chain indexers can tail.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/dispatcher"
	"github.com/garyjia/approval-ledger/internal/domain/event"
)

// Logger is a dispatcher subscriber
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates an audit logger writing under the "audit" name
func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.Named("audit")}
}

// Subscribe registers the audit logger for every ledger event
func (l *Logger) Subscribe(d dispatcher.Dispatcher) {
	d.SubscribeAll("audit-log", l.HandleEvent)
}

// HandleEvent writes one line per event
func (l *Logger) HandleEvent(_ context.Context, evt *event.Event) error {
	fields := make([]zap.Field, 0, len(evt.Payload)+4)
	fields = append(fields,
		zap.String("event_id", evt.ID),
		zap.Stringer("event_type", evt.Type),
		zap.String("workflow_id", evt.WorkflowID),
		zap.String("correlation_id", evt.CorrelationID),
	)
	for k, v := range evt.Payload {
		fields = append(fields, zap.Any(k, v))
	}
	l.logger.Info("ledger event", fields...)
	return nil
}
