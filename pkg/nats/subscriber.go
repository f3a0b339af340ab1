package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"socratic-tutor-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	nc   *nats.Conn
	js   jetstream.JetStream
	subs []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe registers a handler on a durable consumer so events survive restarts.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := decodeEvent(msg.Subject(), msg.Data())
		if err != nil {
			log.Printf("Error unmarshalling event data: %v", err)
			_ = msg.Term()
			return
		}

		if err := handler(ctx, event); err != nil {
			log.Printf("Handler failed for event %s: %v", msg.Subject(), err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.subs = append(s.subs, cc)

	log.Printf("Subscribed to %s with durable %s", subject, durableName)
	return nil
}

// decodeEvent rebuilds an event from its subject and JSON payload.
func decodeEvent(subject string, data []byte) (events.BaseEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return events.BaseEvent{}, err
	}

	occurredAt := time.Now()
	if raw, ok := payload["occurredAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			occurredAt = t
		}
	}

	return events.BaseEvent{
		Type:       strings.TrimPrefix(subject, SubjectPrefix),
		Data:       payload,
		OccurredAt: occurredAt,
	}, nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.subs {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
