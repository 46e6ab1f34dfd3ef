package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/opsplan/pkg/channels/gochannel"
	"github.com/dukex/opsplan/pkg/eventbus"
	"github.com/dukex/opsplan/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_DeliversDecodedEvent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	received := make(chan *events.NodeDeleted, 1)

	require.NoError(t, bus.Handle(events.NodeDeletedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.NodeDeleted)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.NodeDeleted{
		BaseEvent:      events.NewBaseEvent(events.NodeDeletedEvent),
		WorkflowID:     "wf-1",
		NodeID:         "n-1",
		RemovedEdgeIDs: []string{"e-1"},
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "n-1", got.NodeID)
		assert.Equal(t, []string{"e-1"}, got.RemovedEdgeIDs)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_SkipsUnhandledTypes(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	received := make(chan events.EventType, 2)

	require.NoError(t, bus.Handle(events.OperationCreatedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.OperationCreated).GetType()

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "org-1", events.OperationDeleted{
		BaseEvent:   events.NewBaseEvent(events.OperationDeletedEvent),
		OperationID: "op-1",
	}))
	require.NoError(t, bus.Publish(ctx, "org-1", events.OperationCreated{
		BaseEvent:   events.NewBaseEvent(events.OperationCreatedEvent),
		OperationID: "op-2",
	}))

	select {
	case got := <-received:
		assert.Equal(t, events.OperationCreatedEvent, got)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	assert.Empty(t, received)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
