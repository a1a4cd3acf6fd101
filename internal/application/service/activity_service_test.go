package service

import (
	"context"
	"testing"

	"github.com/garyjia/factura-chat/internal/application/dispatcher"
	"github.com/garyjia/factura-chat/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityService_CountsEvents(t *testing.T) {
	svc := NewActivityService(mockLogger{})
	ctx := context.Background()

	events := []*event.Event{
		event.NewEvent(event.TypeSessionStarted, "s1", nil),
		event.NewEvent(event.TypeStageChanged, "s1", map[string]any{"to": "CONFIRMING"}),
		event.NewEvent(event.TypeStageChanged, "s1", map[string]any{"to": "COMPLETED"}),
		event.NewEvent(event.TypeInvoiceIssued, "s1", map[string]any{"number": "FC-001-00000001", "demo": true}),
		event.NewEvent(event.TypeSubmissionFailed, "s2", map[string]any{"error": "timeout"}),
		event.NewEvent(event.TypeSessionCleared, "s2", nil),
		event.NewEvent(event.TypeSessionExpired, "s2", nil),
	}
	for _, e := range events {
		require.NoError(t, svc.Handle(ctx, e))
	}

	stats := svc.Stats()
	assert.Equal(t, 1, stats.SessionsStarted)
	assert.Equal(t, 1, stats.SessionsCleared)
	assert.Equal(t, 1, stats.SessionsExpired)
	assert.Equal(t, 1, stats.InvoicesIssued)
	assert.Equal(t, 1, stats.DemoInvoices)
	assert.Equal(t, 1, stats.SubmissionsFailed)
	assert.Equal(t, map[string]int{"CONFIRMING": 1, "COMPLETED": 1}, stats.StageEntries)
	assert.NotEmpty(t, stats.LastEventAt)
}

func TestActivityService_StatsIsACopy(t *testing.T) {
	svc := NewActivityService(nil)
	require.NoError(t, svc.Handle(context.Background(),
		event.NewEvent(event.TypeStageChanged, "s", map[string]any{"to": "COLLECTING"})))

	stats := svc.Stats()
	stats.StageEntries["COLLECTING"] = 99

	assert.Equal(t, 1, svc.Stats().StageEntries["COLLECTING"])
}

func TestActivityService_RegisterWithDispatcher(t *testing.T) {
	d := dispatcher.NewDispatcher()
	defer d.Close()

	svc := NewActivityService(nil)
	svc.Register(d)

	for _, typ := range event.All {
		assert.Len(t, d.ListHandlers(typ), 1, typ)
	}

	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeSessionStarted, "s", nil)))
	assert.Equal(t, 1, svc.Stats().SessionsStarted)
}
