package provider

import (
	"context"
	"errors"

	"github.com/relayforge/novu-bridge/internal/domain"
)

// ErrNotSupported is returned by capabilities a backend does not implement.
// Callers get one uniform failure path instead of scattered existence
// checks against optional methods.
var ErrNotSupported = errors.New("operation not supported by provider")

// NotificationProvider is the outbound port to the notification
// orchestrator. Novu is the default implementation; any backend may answer
// ErrNotSupported for capabilities it lacks.
type NotificationProvider interface {
	Trigger(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error)
	TriggerBulk(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error)

	CreateSubscriber(ctx context.Context, subscriber domain.Subscriber) (*domain.SubscriberResult, error)
	UpdateSubscriber(ctx context.Context, subscriberID string, subscriber domain.Subscriber) (*domain.SubscriberResult, error)
	GetSubscriberPreferences(ctx context.Context, subscriberID string) (*domain.SubscriberPreferences, error)
	UpdateSubscriberPreferences(ctx context.Context, subscriberID string, preferences domain.SubscriberPreferences) (*domain.SubscriberPreferences, error)

	CreateWorkflow(ctx context.Context, definition domain.WorkflowDefinition) (*domain.WorkflowResult, error)
	UpdateWorkflow(ctx context.Context, workflowID string, update domain.WorkflowUpdate) (*domain.WorkflowResult, error)
	DeleteWorkflow(ctx context.Context, workflowID string) error
}
