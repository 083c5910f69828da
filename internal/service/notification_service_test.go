package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/relayforge/novu-bridge/internal/domain"
	"github.com/relayforge/novu-bridge/internal/provider"
)

type fakeProvider struct {
	triggerFn     func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error)
	triggerBulkFn func(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error)
}

func (f *fakeProvider) Trigger(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
	return f.triggerFn(ctx, event)
}

func (f *fakeProvider) TriggerBulk(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error) {
	return f.triggerBulkFn(ctx, events)
}

func (f *fakeProvider) CreateSubscriber(ctx context.Context, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
	return &domain.SubscriberResult{SubscriberID: subscriber.SubscriberID}, nil
}

func (f *fakeProvider) UpdateSubscriber(ctx context.Context, subscriberID string, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
	return &domain.SubscriberResult{SubscriberID: subscriberID}, nil
}

func (f *fakeProvider) GetSubscriberPreferences(ctx context.Context, subscriberID string) (*domain.SubscriberPreferences, error) {
	return &domain.SubscriberPreferences{}, nil
}

func (f *fakeProvider) UpdateSubscriberPreferences(ctx context.Context, subscriberID string, preferences domain.SubscriberPreferences) (*domain.SubscriberPreferences, error) {
	return &preferences, nil
}

func (f *fakeProvider) CreateWorkflow(ctx context.Context, definition domain.WorkflowDefinition) (*domain.WorkflowResult, error) {
	return &domain.WorkflowResult{WorkflowID: definition.WorkflowID}, nil
}

func (f *fakeProvider) UpdateWorkflow(ctx context.Context, workflowID string, update domain.WorkflowUpdate) (*domain.WorkflowResult, error) {
	return &domain.WorkflowResult{WorkflowID: workflowID}, nil
}

func (f *fakeProvider) DeleteWorkflow(ctx context.Context, workflowID string) error {
	return nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return f.allowFn(ctx, key)
}

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	return nil
}

func validTriggerEvent() domain.TriggerEvent {
	return domain.TriggerEvent{
		WorkflowID: "onboarding",
		To:         domain.Subscriber{SubscriberID: "user-1"},
	}
}

func TestTrigger_Success(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		triggerFn: func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
			if event.WorkflowID != "onboarding" {
				t.Fatalf("workflowId = %q, want onboarding", event.WorkflowID)
			}
			return &domain.TriggerResult{Acknowledged: true, Status: domain.TriggerStatusProcessed}, nil
		},
	}

	svc, err := NewNotificationService(p, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	result, err := svc.Trigger(context.Background(), validTriggerEvent())
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if !result.Acknowledged {
		t.Fatal("expected acknowledged result")
	}
}

func TestTrigger_ValidationError(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		triggerFn: func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
			t.Fatal("provider should not be called for invalid event")
			return nil, nil
		},
	}

	svc, err := NewNotificationService(p, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	_, err = svc.Trigger(context.Background(), domain.TriggerEvent{To: domain.Subscriber{SubscriberID: "user-1"}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	_, err = svc.Trigger(context.Background(), domain.TriggerEvent{WorkflowID: "onboarding"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for missing subscriber", err)
	}
}

func TestTrigger_RateLimited(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		triggerFn: func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
			t.Fatal("provider should not be called when rate limited")
			return nil, nil
		},
	}
	limiter := &fakeRateLimiter{
		allowFn: func(ctx context.Context, key string) (bool, error) {
			if key != "trigger:onboarding" {
				t.Fatalf("key = %q, want trigger:onboarding", key)
			}
			return false, nil
		},
	}

	svc, err := NewNotificationService(p, limiter, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	_, err = svc.Trigger(context.Background(), validTriggerEvent())
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}

func TestTrigger_RateLimiterErrorFailsOpen(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		triggerFn: func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
			return &domain.TriggerResult{Acknowledged: true, Status: domain.TriggerStatusProcessed}, nil
		},
	}
	limiter := &fakeRateLimiter{
		allowFn: func(ctx context.Context, key string) (bool, error) {
			return false, fmt.Errorf("redis connection refused")
		},
	}

	svc, err := NewNotificationService(p, limiter, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	result, err := svc.Trigger(context.Background(), validTriggerEvent())
	if err != nil {
		t.Fatalf("Trigger() error = %v, want fail-open success", err)
	}
	if !result.Acknowledged {
		t.Fatal("expected acknowledged result despite limiter error")
	}
}

func TestTriggerBulk_NativeBulk(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		triggerBulkFn: func(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error) {
			results := make([]domain.TriggerResult, len(events))
			for i := range results {
				results[i] = domain.TriggerResult{Acknowledged: true, Status: domain.TriggerStatusProcessed}
			}
			return results, nil
		},
	}

	svc, err := NewNotificationService(p, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	events := []domain.TriggerEvent{validTriggerEvent(), validTriggerEvent()}
	results, err := svc.TriggerBulk(context.Background(), events)
	if err != nil {
		t.Fatalf("TriggerBulk() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results len = %d, want 2", len(results))
	}
}

func TestTriggerBulk_FallsBackWhenNotSupported(t *testing.T) {
	t.Parallel()

	singleCalls := 0
	p := &fakeProvider{
		triggerBulkFn: func(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error) {
			return nil, fmt.Errorf("%w: bulk trigger", provider.ErrNotSupported)
		},
		triggerFn: func(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
			singleCalls++
			return &domain.TriggerResult{Acknowledged: true, Status: domain.TriggerStatusProcessed}, nil
		},
	}

	svc, err := NewNotificationService(p, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	events := []domain.TriggerEvent{validTriggerEvent(), validTriggerEvent(), validTriggerEvent()}
	results, err := svc.TriggerBulk(context.Background(), events)
	if err != nil {
		t.Fatalf("TriggerBulk() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results len = %d, want 3", len(results))
	}
	if singleCalls != 3 {
		t.Fatalf("single trigger calls = %d, want 3", singleCalls)
	}
}

func TestTriggerBulk_Limits(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		triggerBulkFn: func(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error) {
			return nil, nil
		},
	}

	svc, err := NewNotificationService(p, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	results, err := svc.TriggerBulk(context.Background(), nil)
	if err != nil {
		t.Fatalf("TriggerBulk(empty) error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results len = %d, want 0 for empty input", len(results))
	}

	oversized := make([]domain.TriggerEvent, maxBulkTriggerSize+1)
	for i := range oversized {
		oversized[i] = validTriggerEvent()
	}
	_, err = svc.TriggerBulk(context.Background(), oversized)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for oversized bulk", err)
	}

	invalid := []domain.TriggerEvent{validTriggerEvent(), {WorkflowID: "onboarding"}}
	_, err = svc.TriggerBulk(context.Background(), invalid)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for invalid event in bulk", err)
	}
}

func TestSubscriberAndWorkflowValidation(t *testing.T) {
	t.Parallel()

	svc, err := NewNotificationService(&fakeProvider{}, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	ctx := context.Background()

	if _, err := svc.CreateSubscriber(ctx, domain.Subscriber{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("CreateSubscriber error = %v, want ErrValidation", err)
	}
	if _, err := svc.UpdateSubscriber(ctx, "  ", domain.Subscriber{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("UpdateSubscriber error = %v, want ErrValidation", err)
	}
	if _, err := svc.GetSubscriberPreferences(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetSubscriberPreferences error = %v, want ErrValidation", err)
	}
	if _, err := svc.CreateWorkflow(ctx, domain.WorkflowDefinition{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("CreateWorkflow error = %v, want ErrValidation", err)
	}
	if _, err := svc.UpdateWorkflow(ctx, "", domain.WorkflowUpdate{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("UpdateWorkflow error = %v, want ErrValidation", err)
	}
	if err := svc.DeleteWorkflow(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("DeleteWorkflow error = %v, want ErrValidation", err)
	}
}
