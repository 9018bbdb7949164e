package events

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TopicChatEvents carries pipeline events on the in-process bus.
const TopicChatEvents = "CHAT_EVENTS"

// Publisher is the in-process side of the event flow. The dispatcher
// publishes through it without knowing about watermill.
type Publisher interface {
	Publish(event Event) error
}

type envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// BusPublisher adapts a watermill publisher to the Event contract.
type BusPublisher struct {
	pub   message.Publisher
	topic string
}

func NewBusPublisher(pub message.Publisher, topic string) *BusPublisher {
	if topic == "" {
		topic = TopicChatEvents
	}
	return &BusPublisher{pub: pub, topic: topic}
}

func (b *BusPublisher) Publish(event Event) error {
	payload, err := json.Marshal(envelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return err
	}
	return b.pub.Publish(b.topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Decode parses a bus message back into an Event.
func Decode(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	return BaseEvent{
		Type:       env.Type,
		Data:       env.Data,
		OccurredAt: env.OccurredAt,
	}, nil
}
