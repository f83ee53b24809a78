package eventing

import (
	"context"
)

// Handler receives a delivered envelope.
type Handler func(ctx context.Context, env Envelope) error

// OutboxStore provides access to outbox records.
type OutboxStore interface {
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxRecord represents a pending outbox entry.
type OutboxRecord struct {
	ID       string
	Envelope Envelope
}

// Dispatcher delivers pending outbox records to a handler.
type Dispatcher struct {
	outbox  OutboxStore
	handler Handler
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(outbox OutboxStore, handler Handler) *Dispatcher {
	return &Dispatcher{outbox: outbox, handler: handler}
}

// Dispatch pulls pending outbox messages and delivers them.
func (d *Dispatcher) Dispatch(ctx context.Context, limit int) error {
	if d == nil || d.outbox == nil || d.handler == nil {
		return nil
	}
	if limit <= 0 {
		limit = 50
	}
	records, err := d.outbox.ListPending(ctx, limit)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := d.handler(WithEnvelope(ctx, record.Envelope), record.Envelope); err != nil {
			_ = d.outbox.MarkFailed(ctx, record.ID)
			continue
		}
		_ = d.outbox.MarkSent(ctx, record.ID)
	}
	return nil
}
