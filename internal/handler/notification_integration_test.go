package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/relayforge/novu-bridge/internal/domain"
	"github.com/relayforge/novu-bridge/internal/provider"
	"github.com/relayforge/novu-bridge/internal/transport"
)

type stubNotificationService struct {
	triggerFn                     func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error)
	triggerBulkFn                 func(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error)
	createSubscriberFn            func(ctx context.Context, subscriber domain.Subscriber) (*domain.SubscriberResult, error)
	updateSubscriberFn            func(ctx context.Context, subscriberID string, subscriber domain.Subscriber) (*domain.SubscriberResult, error)
	getSubscriberPreferencesFn    func(ctx context.Context, subscriberID string) (*domain.SubscriberPreferences, error)
	updateSubscriberPreferencesFn func(ctx context.Context, subscriberID string, preferences domain.SubscriberPreferences) (*domain.SubscriberPreferences, error)
	createWorkflowFn              func(ctx context.Context, definition domain.WorkflowDefinition) (*domain.WorkflowResult, error)
	updateWorkflowFn              func(ctx context.Context, workflowID string, update domain.WorkflowUpdate) (*domain.WorkflowResult, error)
	deleteWorkflowFn              func(ctx context.Context, workflowID string) error
}

func (s *stubNotificationService) Trigger(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
	return s.triggerFn(ctx, event)
}

func (s *stubNotificationService) TriggerBulk(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error) {
	return s.triggerBulkFn(ctx, events)
}

func (s *stubNotificationService) CreateSubscriber(ctx context.Context, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
	return s.createSubscriberFn(ctx, subscriber)
}

func (s *stubNotificationService) UpdateSubscriber(ctx context.Context, subscriberID string, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
	return s.updateSubscriberFn(ctx, subscriberID, subscriber)
}

func (s *stubNotificationService) GetSubscriberPreferences(ctx context.Context, subscriberID string) (*domain.SubscriberPreferences, error) {
	return s.getSubscriberPreferencesFn(ctx, subscriberID)
}

func (s *stubNotificationService) UpdateSubscriberPreferences(ctx context.Context, subscriberID string, preferences domain.SubscriberPreferences) (*domain.SubscriberPreferences, error) {
	return s.updateSubscriberPreferencesFn(ctx, subscriberID, preferences)
}

func (s *stubNotificationService) CreateWorkflow(ctx context.Context, definition domain.WorkflowDefinition) (*domain.WorkflowResult, error) {
	return s.createWorkflowFn(ctx, definition)
}

func (s *stubNotificationService) UpdateWorkflow(ctx context.Context, workflowID string, update domain.WorkflowUpdate) (*domain.WorkflowResult, error) {
	return s.updateWorkflowFn(ctx, workflowID, update)
}

func (s *stubNotificationService) DeleteWorkflow(ctx context.Context, workflowID string) error {
	return s.deleteWorkflowFn(ctx, workflowID)
}

func newNotificationTestApp(t *testing.T, svc NotificationService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterNotificationRoutes(app, svc); err != nil {
		t.Fatalf("RegisterNotificationRoutes() error = %v", err)
	}

	return app
}

func TestNotificationIntegration_Trigger(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		triggerFn: func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
			if err := event.Validate(); err != nil {
				return nil, err
			}
			return &domain.TriggerResult{
				Acknowledged:  true,
				Status:        domain.TriggerStatusProcessed,
				TransactionID: "txn-1",
			}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	validBody := `{"workflowId":"onboarding","to":{"subscriberId":"user-1","email":"user@example.com"},"payload":{"name":"Ada"}}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/notifications", validBody)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["acknowledged"] != true {
		t.Fatalf("acknowledged = %v, want true", parsed["acknowledged"])
	}
	if parsed["transactionId"] != "txn-1" {
		t.Fatalf("transactionId = %v, want txn-1", parsed["transactionId"])
	}

	missingWorkflowBody := `{"to":{"subscriberId":"user-1"}}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications", missingWorkflowBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing workflowId", resp.StatusCode)
	}

	missingSubscriberBody := `{"workflowId":"onboarding","to":{}}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications", missingSubscriberBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing subscriberId", resp.StatusCode)
	}
}

func TestNotificationIntegration_TriggerRateLimited(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		triggerFn: func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
			return nil, domain.ErrRateLimited
		},
	}

	app := newNotificationTestApp(t, svc)

	body := `{"workflowId":"onboarding","to":{"subscriberId":"user-1"}}`
	resp, _ := performRequest(t, app, http.MethodPost, "/v1/notifications", body)
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
}

func TestNotificationIntegration_TriggerBulk(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		triggerBulkFn: func(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error) {
			results := make([]domain.TriggerResult, 0, len(events))
			for range events {
				results = append(results, domain.TriggerResult{
					Acknowledged: true,
					Status:       domain.TriggerStatusProcessed,
				})
			}
			return results, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	body := `{"events":[{"workflowId":"onboarding","to":{"subscriberId":"user-1"}},{"workflowId":"onboarding","to":{"subscriberId":"user-2"}}]}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/notifications/bulk", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(respBody))
	}

	var parsed triggerBulkResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Results) != 2 {
		t.Fatalf("results len = %d, want 2", len(parsed.Results))
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications/bulk", `{"events":[]}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty events", resp.StatusCode)
	}
}

func TestNotificationIntegration_SubscriberLifecycle(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		createSubscriberFn: func(ctx context.Context, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
			if err := subscriber.Validate(); err != nil {
				return nil, err
			}
			return &domain.SubscriberResult{SubscriberID: subscriber.SubscriberID, Email: subscriber.Email}, nil
		},
		updateSubscriberFn: func(ctx context.Context, subscriberID string, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
			return &domain.SubscriberResult{SubscriberID: subscriberID, FirstName: subscriber.FirstName}, nil
		},
		getSubscriberPreferencesFn: func(ctx context.Context, subscriberID string) (*domain.SubscriberPreferences, error) {
			if subscriberID == "ghost" {
				return nil, domain.ErrNotFound
			}
			return &domain.SubscriberPreferences{
				Channels: map[domain.Channel]domain.ChannelPreference{
					domain.ChannelEmail: {Enabled: true},
				},
			}, nil
		},
		updateSubscriberPreferencesFn: func(ctx context.Context, subscriberID string, preferences domain.SubscriberPreferences) (*domain.SubscriberPreferences, error) {
			return &preferences, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/subscribers", `{"subscriberId":"user-1","email":"user@example.com"}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/subscribers", `{"email":"user@example.com"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing subscriberId", resp.StatusCode)
	}

	resp, body = performRequest(t, app, http.MethodPut, "/v1/subscribers/user-1", `{"firstName":"Ada"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	resp, body = performRequest(t, app, http.MethodGet, "/v1/subscribers/user-1/preferences", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/subscribers/ghost/preferences", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown subscriber", resp.StatusCode)
	}

	resp, body = performRequest(t, app, http.MethodPatch, "/v1/subscribers/user-1/preferences", `{"channels":{"sms":{"enabled":false}}}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
}

func TestNotificationIntegration_WorkflowCRUD(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		createWorkflowFn: func(ctx context.Context, definition domain.WorkflowDefinition) (*domain.WorkflowResult, error) {
			if err := definition.Validate(); err != nil {
				return nil, err
			}
			return &domain.WorkflowResult{ID: "wf-internal", WorkflowID: definition.WorkflowID, Name: definition.Name, Active: true}, nil
		},
		updateWorkflowFn: func(ctx context.Context, workflowID string, update domain.WorkflowUpdate) (*domain.WorkflowResult, error) {
			return &domain.WorkflowResult{ID: "wf-internal", WorkflowID: workflowID, Name: update.Name, Active: true}, nil
		},
		deleteWorkflowFn: func(ctx context.Context, workflowID string) error {
			if workflowID == "ghost" {
				return domain.ErrNotFound
			}
			return nil
		},
	}

	app := newNotificationTestApp(t, svc)

	createBody := `{"workflowId":"onboarding","name":"Onboarding","steps":[{"name":"welcome","type":"email","controlValues":{"subject":"Hi","body":"Welcome"}}]}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/workflows", createBody)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/workflows", `{"workflowId":"x","name":"X","steps":[]}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty steps", resp.StatusCode)
	}

	resp, body = performRequest(t, app, http.MethodPut, "/v1/workflows/onboarding", `{"name":"Onboarding v2"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	resp, _ = performRequest(t, app, http.MethodDelete, "/v1/workflows/onboarding", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodDelete, "/v1/workflows/ghost", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown workflow", resp.StatusCode)
	}
}

func TestNotificationIntegration_NotSupported(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		getSubscriberPreferencesFn: func(ctx context.Context, subscriberID string) (*domain.SubscriberPreferences, error) {
			return nil, provider.ErrNotSupported
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/subscribers/user-1/preferences", "")
	if resp.StatusCode != fiber.StatusNotImplemented {
		t.Fatalf("status = %d, want 501 for unsupported capability", resp.StatusCode)
	}
}
