package queue

import "context"

const (
	// EventsQueue carries raw webhook payloads mirrored into the broker by
	// the orchestrator gateway.
	EventsQueue = "novu.events"

	// EventsDLQ collects payloads that can never be ingested.
	EventsDLQ = "dlq.novu.events"
)

// EventHandler ingests one raw webhook payload. Returning an error wrapping
// domain.ErrValidation dead-letters the message; any other error requeues it.
type EventHandler func(ctx context.Context, payload []byte) error

// Consumer consumes raw event payloads from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler EventHandler) error
	Close() error
}
