package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/opsplan/pkg/events"
)

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber

	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

// Publish sends the event on the shared topic. The key travels as metadata and
// is used as the Kafka partition key, so events of one workflow stay ordered.
func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			eb.mu.RLock()
			handler, exists := eb.subscriptions[eventType]
			eb.mu.RUnlock()

			if !exists {
				msg.Ack()

				continue
			}

			event := newEvent(eventType)
			if event == nil {
				msg.Nack()

				continue
			}

			err := json.Unmarshal(msg.Payload, event)
			if err != nil {
				msg.Nack()

				continue
			}

			err = handler(ctx, event)
			if err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

// newEvent returns a pointer to a zero event of the given type, or nil when the type is unknown.
func newEvent(eventType events.EventType) any {
	switch eventType {
	case events.OperationCreatedEvent:
		return &events.OperationCreated{}
	case events.OperationUpdatedEvent:
		return &events.OperationUpdated{}
	case events.OperationDeletedEvent:
		return &events.OperationDeleted{}
	case events.WorkflowCreatedEvent:
		return &events.WorkflowCreated{}
	case events.NodeCreatedEvent:
		return &events.NodeCreated{}
	case events.NodeUpdatedEvent:
		return &events.NodeUpdated{}
	case events.NodeDeletedEvent:
		return &events.NodeDeleted{}
	case events.EdgeCreatedEvent:
		return &events.EdgeCreated{}
	case events.EdgeUpdatedEvent:
		return &events.EdgeUpdated{}
	case events.EdgeDeletedEvent:
		return &events.EdgeDeleted{}
	case events.OperationHistoryRecordedEvent:
		return &events.OperationHistoryRecorded{}
	default:
		return nil
	}
}
