package interfaces

import (
	"context"
	"encoding/json"
	"fmt"

	"library-fees/internal/eventing"
	"library-fees/internal/fees/application"
)

// OutboxPublisher writes report generated events to the outbox.
type OutboxPublisher struct {
	publisher *eventing.Publisher
}

// NewOutboxPublisher constructs an outbox publisher.
func NewOutboxPublisher(publisher *eventing.Publisher) *OutboxPublisher {
	return &OutboxPublisher{publisher: publisher}
}

// PublishReportGenerated writes event to outbox.
func (p *OutboxPublisher) PublishReportGenerated(ctx context.Context, event application.ReportGenerated) error {
	if p == nil || p.publisher == nil {
		return nil
	}
	ctx = eventing.WithCorrelationID(ctx, event.RunID)
	return p.publisher.Publish(ctx, event)
}

// ReportGeneratedHandler decodes delivered outbox envelopes and forwards
// report generated events to next. Other event types are acknowledged.
func ReportGeneratedHandler(next application.ReportPublisher) eventing.Handler {
	return func(ctx context.Context, env eventing.Envelope) error {
		if env.EventType != application.ReportGeneratedEvent || next == nil {
			return nil
		}
		var event application.ReportGenerated
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return fmt.Errorf("decode %s %s: %w", env.EventType, env.EventID, err)
		}
		return next.PublishReportGenerated(ctx, event)
	}
}
