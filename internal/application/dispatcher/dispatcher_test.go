package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/garyjia/factura-chat/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.Subscribe(event.TypeInvoiceIssued, "first", func(context.Context, *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(event.TypeInvoiceIssued, "second", func(context.Context, *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(event.TypeSubmissionFailed, "other", func(context.Context, *event.Event) error {
		order = append(order, "other")
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeInvoiceIssued, "s1", nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(WithLogger(logger))
	boom := errors.New("boom")
	called := false

	d.Subscribe(event.TypeStageChanged, "failing", func(context.Context, *event.Event) error { return boom })
	d.Subscribe(event.TypeStageChanged, "never", func(context.Context, *event.Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeStageChanged, "s1", nil))

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.False(t, called)
	assert.Equal(t, 1, logger.errorCount())
}

func TestDispatch_RecoversPanics(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeSessionStarted, "panicky", func(context.Context, *event.Event) error {
		panic("kaboom")
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeSessionStarted, "s1", nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestDispatchAsync_CloseWaitsForHandlers(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(WithLogger(logger))
	var count atomic.Int32

	for _, name := range []string{"a", "b", "c"} {
		d.Subscribe(event.TypeSessionExpired, name, func(context.Context, *event.Event) error {
			count.Add(1)
			return nil
		})
	}
	d.Subscribe(event.TypeSessionExpired, "broken", func(context.Context, *event.Event) error {
		return errors.New("nope")
	})

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeSessionExpired, "s1", nil))
	require.NoError(t, d.Close())

	assert.Equal(t, int32(3), count.Load())
	assert.Equal(t, 1, logger.errorCount())
}

func TestDispatchAsync_ConcurrentWithClose(t *testing.T) {
	d := NewDispatcher()
	var running, accepted atomic.Int32

	d.Subscribe(event.TypeStageChanged, "counter", func(context.Context, *event.Event) error {
		running.Add(1)
		defer running.Add(-1)
		accepted.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				d.DispatchAsync(context.Background(), event.NewEvent(event.TypeStageChanged, "s1", nil))
			}
		}()
	}

	close(start)
	require.NoError(t, d.Close())
	assert.Zero(t, running.Load(), "no handler may run after Close returns")

	after := accepted.Load()
	wg.Wait()
	assert.Equal(t, after, accepted.Load(), "events dispatched after Close are dropped")
}

func TestClose(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(WithLogger(logger))
	require.NoError(t, d.Close())

	assert.ErrorIs(t, d.Close(), ErrClosed)
	assert.ErrorIs(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeSessionCleared, "s", nil)), ErrClosed)

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeSessionCleared, "s", nil))
	assert.Equal(t, 1, logger.errorCount())
}

func TestUnsubscribeAndList(t *testing.T) {
	d := NewDispatcher(WithLogger(nil))
	noop := func(context.Context, *event.Event) error { return nil }

	d.Subscribe(event.TypeInvoiceIssued, "audit", noop)
	d.Subscribe(event.TypeInvoiceIssued, "stats", noop)
	d.Unsubscribe(event.TypeInvoiceIssued, "audit")
	d.Unsubscribe(event.TypeSessionStarted, "missing")

	handlers := d.ListHandlers(event.TypeInvoiceIssued)
	require.Len(t, handlers, 1)
	assert.Equal(t, "stats", handlers[0].Name)
	assert.Nil(t, handlers[0].Handler)
	assert.Empty(t, d.ListHandlers(event.TypeSessionStarted))
}
