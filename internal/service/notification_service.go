package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relayforge/novu-bridge/internal/domain"
	"github.com/relayforge/novu-bridge/internal/observability"
	"github.com/relayforge/novu-bridge/internal/provider"
	"github.com/relayforge/novu-bridge/internal/ratelimit"
)

const maxBulkTriggerSize = 100

// NotificationService validates requests and passes them through to the
// orchestrator. It owns no delivery logic: retries, templating, and
// scheduling all live behind the provider.
type NotificationService struct {
	provider    provider.NotificationProvider
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewNotificationService(
	p provider.NotificationProvider,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*NotificationService, error) {
	if p == nil {
		return nil, fmt.Errorf("notification provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		provider:    p,
		rateLimiter: rateLimiter,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}, nil
}

func (s *NotificationService) Trigger(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkQuota(ctx, event.WorkflowID); err != nil {
		return nil, err
	}

	start := s.now()
	result, err := s.provider.Trigger(ctx, event)
	if s.metrics != nil {
		s.metrics.ObserveProviderCall("trigger", s.now().Sub(start))
	}
	if err != nil {
		s.logger.Error("trigger failed",
			zap.String("workflowId", event.WorkflowID),
			zap.String("subscriberId", event.To.SubscriberID),
			zap.Error(err),
		)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncTrigger(string(result.Status))
	}
	if result.Status == domain.TriggerStatusError {
		s.logger.Warn("trigger rejected by orchestrator",
			zap.String("workflowId", event.WorkflowID),
			zap.Any("error", result.Error),
		)
	}

	return result, nil
}

// TriggerBulk sends a batch of trigger events. Providers without a native
// bulk endpoint are driven one event at a time.
func (s *NotificationService) TriggerBulk(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(events) == 0 {
		return []domain.TriggerResult{}, nil
	}
	if len(events) > maxBulkTriggerSize {
		return nil, fmt.Errorf("%w: bulk size exceeds %d", domain.ErrValidation, maxBulkTriggerSize)
	}

	for _, event := range events {
		if err := event.Validate(); err != nil {
			return nil, err
		}
	}

	if err := s.checkQuota(ctx, events[0].WorkflowID); err != nil {
		return nil, err
	}

	start := s.now()
	results, err := s.provider.TriggerBulk(ctx, events)
	if s.metrics != nil {
		s.metrics.ObserveProviderCall("trigger_bulk", s.now().Sub(start))
	}
	if err == nil {
		for _, result := range results {
			if s.metrics != nil {
				s.metrics.IncTrigger(string(result.Status))
			}
		}
		return results, nil
	}
	if !errors.Is(err, provider.ErrNotSupported) {
		return nil, err
	}

	s.logger.Debug("provider has no bulk trigger, falling back to sequential",
		zap.Int("events", len(events)),
	)

	results = make([]domain.TriggerResult, 0, len(events))
	for _, event := range events {
		result, err := s.provider.Trigger(ctx, event)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.IncTrigger(string(result.Status))
		}
		results = append(results, *result)
	}
	return results, nil
}

func (s *NotificationService) CreateSubscriber(ctx context.Context, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
	if err := subscriber.Validate(); err != nil {
		return nil, err
	}
	return s.provider.CreateSubscriber(ctx, subscriber)
}

func (s *NotificationService) UpdateSubscriber(ctx context.Context, subscriberID string, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, fmt.Errorf("%w: subscriberId is required", domain.ErrValidation)
	}
	return s.provider.UpdateSubscriber(ctx, strings.TrimSpace(subscriberID), subscriber)
}

func (s *NotificationService) GetSubscriberPreferences(ctx context.Context, subscriberID string) (*domain.SubscriberPreferences, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, fmt.Errorf("%w: subscriberId is required", domain.ErrValidation)
	}
	return s.provider.GetSubscriberPreferences(ctx, strings.TrimSpace(subscriberID))
}

func (s *NotificationService) UpdateSubscriberPreferences(ctx context.Context, subscriberID string, preferences domain.SubscriberPreferences) (*domain.SubscriberPreferences, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, fmt.Errorf("%w: subscriberId is required", domain.ErrValidation)
	}
	return s.provider.UpdateSubscriberPreferences(ctx, strings.TrimSpace(subscriberID), preferences)
}

func (s *NotificationService) CreateWorkflow(ctx context.Context, definition domain.WorkflowDefinition) (*domain.WorkflowResult, error) {
	if err := definition.Validate(); err != nil {
		return nil, err
	}
	return s.provider.CreateWorkflow(ctx, definition)
}

func (s *NotificationService) UpdateWorkflow(ctx context.Context, workflowID string, update domain.WorkflowUpdate) (*domain.WorkflowResult, error) {
	if strings.TrimSpace(workflowID) == "" {
		return nil, fmt.Errorf("%w: workflowId is required", domain.ErrValidation)
	}
	for _, step := range update.Steps {
		if err := step.Validate(); err != nil {
			return nil, err
		}
	}
	return s.provider.UpdateWorkflow(ctx, strings.TrimSpace(workflowID), update)
}

func (s *NotificationService) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if strings.TrimSpace(workflowID) == "" {
		return fmt.Errorf("%w: workflowId is required", domain.ErrValidation)
	}
	return s.provider.DeleteWorkflow(ctx, strings.TrimSpace(workflowID))
}

// checkQuota is a local guard in front of the orchestrator API quota.
// Redis being down fails open: triggering matters more than throttling.
func (s *NotificationService) checkQuota(ctx context.Context, workflowID string) error {
	if s.rateLimiter == nil {
		return nil
	}

	allowed, err := s.rateLimiter.Allow(ctx, "trigger:"+workflowID)
	if err != nil {
		s.logger.Warn("rate limit check failed, proceeding without limit",
			zap.String("workflowId", workflowID),
			zap.Error(err),
		)
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: trigger quota exceeded for workflow %q", domain.ErrRateLimited, workflowID)
	}
	return nil
}
