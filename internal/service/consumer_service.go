package service

import (
	"context"
	"encoding/json"
	"time"

	"socratic-tutor-be/internal/dto"
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/pkg/events"
	"socratic-tutor-be/pkg/usage"

	"github.com/ThreeDotsLabs/watermill/message"
)

// UsageLedger stores per user daily usage. *usage.Ledger implements it.
type UsageLedger interface {
	Record(ctx context.Context, userID string, at time.Time, report usage.Report) error
}

// EventPublisher forwards events to the external bus. *nats.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService books committed turns into the usage ledger and announces
// them on the external bus.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	ledger     UsageLedger
	events     EventPublisher
	log        logger.ILogger
}

// NewConsumerService wires the usage consumer. ledger may be nil when Redis is
// unavailable and eventPublisher may be nil when NATS is.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ledger UsageLedger,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		ledger:     ledger,
		events:     eventPublisher,
		log:        log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.TurnRecordedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("USAGE", "Invalid turn message", map[string]interface{}{"error": err.Error(), "uuid": msg.UUID})
		msg.Ack() // redelivery cannot fix a bad payload
		return
	}

	if cs.ledger != nil {
		if err := cs.ledger.Record(ctx, payload.UserId.String(), payload.RecordedAt, payload.Usage); err != nil {
			cs.log.Warn("USAGE", "Failed to record daily usage", map[string]interface{}{
				"conversation_id": payload.ConversationId.String(),
				"error":           err.Error(),
			})
			msg.Nack()
			return
		}
	}

	// The ledger is already booked, so bus failures are logged but never nacked.
	if cs.events != nil {
		turn := events.NewTurnRecorded(
			payload.ConversationId.String(),
			payload.UserId.String(),
			payload.Stage,
			payload.Ended,
			payload.Usage.Totals.TotalTokenCount,
			payload.RecordedAt,
		)
		if err := cs.events.Publish(ctx, turn); err != nil {
			cs.log.Warn("USAGE", "Failed to publish turn event", map[string]interface{}{"error": err.Error()})
		}

		if payload.Finalized {
			sub := events.NewSubmissionFinalized(
				payload.AssignmentId.String(),
				payload.UserId.String(),
				payload.ConversationId.String(),
				payload.Late,
				payload.RecordedAt,
			)
			if err := cs.events.Publish(ctx, sub); err != nil {
				cs.log.Warn("USAGE", "Failed to publish submission event", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	cs.log.Debug("USAGE", "Turn usage recorded", map[string]interface{}{
		"conversation_id": payload.ConversationId.String(),
		"total_tokens":    payload.Usage.Totals.TotalTokenCount,
	})
	msg.Ack()
}
