package service

import (
	"context"
	"encoding/json"
	"fmt"

	"socratic-tutor-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IPublisherService hands committed turns to the in-process event bus.
type IPublisherService interface {
	PublishTurnRecorded(ctx context.Context, msg *dto.TurnRecordedMessage) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) PublishTurnRecorded(ctx context.Context, msg *dto.TurnRecordedMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal turn recorded message: %w", err)
	}

	m := message.NewMessage(watermill.NewUUID(), payload)
	m.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, m)
}
