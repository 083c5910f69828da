package domain

import (
	"encoding/json"
	"time"
)

// NotificationLog is the durable record of one processed status event.
// Exactly one log exists per distinct ExternalID; the row is never updated
// or deleted by this service after creation.
type NotificationLog struct {
	ID            string
	ExternalID    string
	WorkflowID    *string
	StepID        *string
	Channel       *string
	Status        *string
	SubscriberID  *string
	ProviderID    *string
	MessageID     *string
	OccurredAt    time.Time
	Metadata      map[string]any
	Raw           json.RawMessage
	TenantID      *string
	TransactionID *string
	CorrelationID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
