package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbookforge/playbook-engine/engine/logging"
)

// ============================================================================
// Fan-out
// ============================================================================

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logging.NewNop())

	var mu sync.Mutex
	var received []string

	for _, name := range []string{"a", "b", "c"} {
		name := name
		bus.Subscribe("StageCompleted", func(ctx context.Context, msg Message) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, name)
			return nil, nil
		})
	}

	err := bus.Publish(context.Background(), &StageCompleted{RunID: "r", Stage: "business_discovery"})
	require.NoError(t, err)
	assert.Len(t, received, 3)
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(logging.NewNop())
	require.NoError(t, bus.Publish(context.Background(), &RunStarted{RunID: "r"}))
}

func TestPublish_SubscriberErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryBus(logging.NewNop())

	var delivered sync.WaitGroup
	delivered.Add(1)
	bus.Subscribe("RunCompleted", func(ctx context.Context, msg Message) (any, error) {
		return nil, errors.New("subscriber broke")
	})
	bus.Subscribe("RunCompleted", func(ctx context.Context, msg Message) (any, error) {
		delivered.Done()
		return nil, nil
	})

	require.NoError(t, bus.Publish(context.Background(), &RunCompleted{RunID: "r"}))
	delivered.Wait()
}

func TestPublish_OnlyMatchingTypeDelivered(t *testing.T) {
	bus := NewInMemoryBus(logging.NewNop())

	var calls int
	bus.Subscribe("StageStarted", func(ctx context.Context, msg Message) (any, error) {
		calls++
		return nil, nil
	})

	require.NoError(t, bus.Publish(context.Background(), &StageCompleted{RunID: "r"}))
	assert.Zero(t, calls)
}

// ============================================================================
// Unsubscribe
// ============================================================================

func TestSubscribe_UnsubscribeRemovesHandler(t *testing.T) {
	bus := NewInMemoryBus(logging.NewNop())

	unsubA := bus.Subscribe("StageStarted", func(ctx context.Context, msg Message) (any, error) { return nil, nil })
	unsubB := bus.Subscribe("StageStarted", func(ctx context.Context, msg Message) (any, error) { return nil, nil })
	assert.Equal(t, 2, bus.SubscriberCount("StageStarted"))

	unsubA()
	assert.Equal(t, 1, bus.SubscriberCount("StageStarted"))

	// Unsubscribing twice is harmless.
	unsubA()
	assert.Equal(t, 1, bus.SubscriberCount("StageStarted"))

	unsubB()
	assert.Equal(t, 0, bus.SubscriberCount("StageStarted"))
}

// ============================================================================
// Middleware
// ============================================================================

type blockingMiddleware struct{ blocked *int }

func (m *blockingMiddleware) Before(ctx context.Context, msg Message) (Message, error) {
	*m.blocked++
	return nil, nil
}

func (m *blockingMiddleware) After(ctx context.Context, msg Message, result any, err error) (any, error) {
	return result, nil
}

func TestMiddleware_CanAbortDelivery(t *testing.T) {
	bus := NewInMemoryBus(logging.NewNop())

	var blocked, delivered int
	bus.AddMiddleware(&blockingMiddleware{blocked: &blocked})
	bus.Subscribe("RunStarted", func(ctx context.Context, msg Message) (any, error) {
		delivered++
		return nil, nil
	})

	require.NoError(t, bus.Publish(context.Background(), &RunStarted{RunID: "r"}))
	assert.Equal(t, 1, blocked)
	assert.Zero(t, delivered)
}

type failingMiddleware struct{}

func (m *failingMiddleware) Before(ctx context.Context, msg Message) (Message, error) {
	return nil, errors.New("middleware rejected")
}

func (m *failingMiddleware) After(ctx context.Context, msg Message, result any, err error) (any, error) {
	return result, nil
}

func TestMiddleware_ErrorPropagates(t *testing.T) {
	bus := NewInMemoryBus(logging.NewNop())
	bus.AddMiddleware(&failingMiddleware{})

	err := bus.Publish(context.Background(), &RunStarted{RunID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "middleware rejected")
}

// ============================================================================
// Message typing
// ============================================================================

func TestGetMessageType(t *testing.T) {
	assert.Equal(t, "RunStarted", GetMessageType(&RunStarted{}))
	assert.Equal(t, "StageCompleted", GetMessageType(&StageCompleted{}))
	assert.Equal(t, "ReflectionCycleStarted", GetMessageType(&ReflectionCycleStarted{}))
}
