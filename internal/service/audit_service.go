package service

import (
	"context"

	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/pkg/events"
	pktNats "socratic-tutor-be/pkg/nats"
)

// EventSubscriber is the durable side of the external bus. *nats.Subscriber implements it.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

type IAuditService interface {
	Start(ctx context.Context) error
}

// auditService copies every bus event into an append-only audit log.
type auditService struct {
	subscriber EventSubscriber
	log        logger.ILogger
}

func NewAuditService(subscriber EventSubscriber, log logger.ILogger) IAuditService {
	return &auditService{subscriber: subscriber, log: log}
}

func (as *auditService) Start(ctx context.Context) error {
	return as.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+">", "tutor-audit", as.handle)
}

func (as *auditService) handle(ctx context.Context, event events.Event) error {
	details := make(map[string]interface{}, len(event.Payload())+1)
	for k, v := range event.Payload() {
		details[k] = v
	}
	details["occurred_at"] = event.Timestamp()
	as.log.Info("AUDIT", event.EventType(), details)
	return nil
}
