package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/approval-ledger/internal/application/dispatcher"
	"github.com/garyjia/approval-ledger/internal/domain/event"
)

func TestLogger_WritesEveryEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := dispatcher.NewDispatcher()
	NewLogger(zap.New(core)).Subscribe(d)

	evt := event.NewEvent(event.TypeWorkflowTransitioned, "7", map[string]interface{}{
		event.KeyToState: "APPROVED",
	})
	require.NoError(t, d.Dispatch(context.Background(), evt))
	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeWorkflowCreated, "8", nil)))

	entries := logs.FilterMessage("ledger event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "audit", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, "7", fields["workflow_id"])
	assert.Equal(t, "workflow.transitioned", fields["event_type"])
	assert.Equal(t, "APPROVED", fields[event.KeyToState])
	assert.Equal(t, evt.CorrelationID, fields["correlation_id"])
}
