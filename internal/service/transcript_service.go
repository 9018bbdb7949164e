package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/events"
	pktNats "doc-assistant-be/pkg/nats"
)

type ITranscriptService interface {
	Consume(ctx context.Context) error
}

// transcriptService drains turn events off the in-process bus and forwards
// them to NATS for the external persistence collaborator. Without NATS it
// still drains the bus so publishers never block, logging each turn.
type transcriptService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	eventPublisher *pktNats.Publisher // may be nil
	logger         logger.ILogger
}

func NewTranscriptService(
	pubSub *gochannel.GoChannel,
	topicName string,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) ITranscriptService {
	return &transcriptService{
		pubSub:         pubSub,
		topicName:      topicName,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (ts *transcriptService) Consume(ctx context.Context) error {
	messages, err := ts.pubSub.Subscribe(ctx, ts.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ts.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ts *transcriptService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		ts.logger.Error("Transcript", "Failed to decode event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	ts.logger.Info("Transcript", "Turn completed", map[string]interface{}{
		"session_id": event.Payload()["session_id"],
	})

	if ts.eventPublisher != nil {
		if err := ts.eventPublisher.Publish(ctx, event); err != nil {
			ts.logger.Warn("Transcript", "Failed to forward event to NATS", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
