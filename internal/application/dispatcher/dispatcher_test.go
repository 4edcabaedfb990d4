package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicportal/lifecycle-engine/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func statusChanged() *event.Event {
	return event.NewEvent(event.TypeApplicationStatusChanged, "clearance", 1, nil)
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string

		d.Subscribe(event.TypeApplicationStatusChanged, "first", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.Subscribe(event.TypeApplicationStatusChanged, "second", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second")
			return nil
		})

		require.NoError(t, d.Dispatch(context.Background(), statusChanged()))
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("stops at first error", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var secondCalled bool

		d.Subscribe(event.TypeApplicationStatusChanged, "failing", func(ctx context.Context, evt *event.Event) error {
			return errors.New("boom")
		})
		d.Subscribe(event.TypeApplicationStatusChanged, "second", func(ctx context.Context, evt *event.Event) error {
			secondCalled = true
			return nil
		})

		err := d.Dispatch(context.Background(), statusChanged())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failing")
		assert.False(t, secondCalled)
		assert.Equal(t, 1, logger.ErrorCount())
	})

	t.Run("recovers from panic", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&mockLogger{}))
		d.Subscribe(event.TypeApplicationStatusChanged, "", func(ctx context.Context, evt *event.Event) error {
			panic("bad handler")
		})

		err := d.Dispatch(context.Background(), statusChanged())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "handler panic")
	})

	t.Run("ignores other event types", func(t *testing.T) {
		d := NewDispatcher()
		var called bool
		d.Subscribe(event.TypeWaitlistRanked, "ranked", func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		require.NoError(t, d.Dispatch(context.Background(), statusChanged()))
		assert.False(t, called)
	})

	t.Run("fails when closed", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, d.Close())
		assert.Error(t, d.Dispatch(context.Background(), statusChanged()))
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("handlers outlive a cancelled request context", func(t *testing.T) {
		d := NewDispatcher()
		var called atomic.Int32
		var ctxErr atomic.Value

		d.Subscribe(event.TypeApplicationStatusChanged, "slow", func(ctx context.Context, evt *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			if ctx.Err() != nil {
				ctxErr.Store(ctx.Err())
			}
			called.Add(1)
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchAsync(ctx, statusChanged())
		cancel()

		require.NoError(t, d.Close())
		assert.Equal(t, int32(1), called.Load())
		assert.Nil(t, ctxErr.Load())
	})

	t.Run("logs handler errors", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Int32

		d.Subscribe(event.TypeApplicationStatusChanged, "failing", func(ctx context.Context, evt *event.Event) error {
			return errors.New("handler error")
		})
		d.Subscribe(event.TypeApplicationStatusChanged, "ok", func(ctx context.Context, evt *event.Event) error {
			called.Add(1)
			return nil
		})

		d.DispatchAsync(context.Background(), statusChanged())
		require.NoError(t, d.Close())

		assert.Equal(t, int32(1), called.Load())
		assert.Equal(t, 1, logger.ErrorCount())
	})

	t.Run("applies the async timeout", func(t *testing.T) {
		d := NewDispatcher(WithAsyncTimeout(5 * time.Millisecond))
		var timedOut atomic.Bool

		d.Subscribe(event.TypeApplicationStatusChanged, "waits", func(ctx context.Context, evt *event.Event) error {
			<-ctx.Done()
			timedOut.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		})

		d.DispatchAsync(context.Background(), statusChanged())
		require.NoError(t, d.Close())
		assert.True(t, timedOut.Load())
	})

	t.Run("does not dispatch when closed", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Int32
		d.Subscribe(event.TypeApplicationStatusChanged, "h", func(ctx context.Context, evt *event.Event) error {
			called.Add(1)
			return nil
		})

		require.NoError(t, d.Close())
		d.DispatchAsync(context.Background(), statusChanged())

		assert.Equal(t, int32(0), called.Load())
		assert.Equal(t, 1, logger.ErrorCount())
	})
}

func TestListHandlers(t *testing.T) {
	d := NewDispatcher()
	assert.Empty(t, d.ListHandlers(event.TypeApplicationStatusChanged))

	d.Subscribe(event.TypeApplicationStatusChanged, "outbox", func(ctx context.Context, evt *event.Event) error { return nil })
	d.Subscribe(event.TypeApplicationStatusChanged, "", func(ctx context.Context, evt *event.Event) error { return nil })

	handlers := d.ListHandlers(event.TypeApplicationStatusChanged)
	require.Len(t, handlers, 2)
	assert.Equal(t, "outbox", handlers[0].Name)
	assert.Equal(t, "handler-1", handlers[1].Name)
	assert.Nil(t, handlers[0].Handler)
}

func TestClose_Twice(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Close())
	assert.Error(t, d.Close())
}

func TestConcurrentDispatch(t *testing.T) {
	d := NewDispatcher()
	var count atomic.Int32
	d.Subscribe(event.TypeApplicationStatusChanged, "counter", func(ctx context.Context, evt *event.Event) error {
		count.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.DispatchAsync(context.Background(), statusChanged())
		}()
	}
	wg.Wait()

	require.NoError(t, d.Close())
	assert.Equal(t, int32(50), count.Load())
}
