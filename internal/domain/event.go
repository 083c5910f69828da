package domain

import "encoding/json"

// ProviderInfo identifies the delivery provider behind a status event
// (sendgrid, twilio, fcm, ...) plus whatever payload it forwarded.
type ProviderInfo struct {
	ID  string         `json:"id"`
	Raw map[string]any `json:"raw,omitempty"`
}

// InboundEvent is one normalized delivery-status event received from Novu.
// ExternalID is the upstream event id and doubles as the idempotency key.
type InboundEvent struct {
	ExternalID   string         `json:"id"`
	EventType    string         `json:"type"`
	Timestamp    string         `json:"timestamp,omitempty"`
	WorkflowID   string         `json:"workflowId,omitempty"`
	StepID       string         `json:"stepId,omitempty"`
	Channel      string         `json:"channel,omitempty"`
	Status       string         `json:"status,omitempty"`
	SubscriberID string         `json:"subscriberId,omitempty"`
	MessageID    string         `json:"messageId,omitempty"`
	Provider     *ProviderInfo  `json:"provider,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	// Raw is the original payload as received, kept for diagnostics.
	// It is set by the normalizer, never by the sender.
	Raw json.RawMessage `json:"-"`
}
