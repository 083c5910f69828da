package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relayforge/novu-bridge/internal/domain"
	"github.com/relayforge/novu-bridge/internal/observability"
	"github.com/relayforge/novu-bridge/internal/repository"
)

const (
	minIngestConcurrency     = 1
	defaultIngestConcurrency = 8
)

// EventFailure attributes one failed event to its external id so callers
// can correlate. ExternalID is empty when the event never had one.
type EventFailure struct {
	ExternalID string `json:"externalId,omitempty"`
	Reason     string `json:"reason"`
}

// BatchOutcome summarizes one ingestion call. Duplicate-skips are counted
// separately from successes so senders can observe redelivery.
type BatchOutcome struct {
	Received  int            `json:"received"`
	Succeeded int            `json:"succeeded"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Failures  []EventFailure `json:"failures,omitempty"`
}

type eventResult struct {
	skipped    bool
	externalID string
	err        error
}

// StatusService ingests delivery-status webhook events and persists an
// idempotent notification log. Events within a batch are independent: one
// failure never aborts the others.
type StatusService struct {
	logs        repository.LogRepository
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewStatusService(
	logs repository.LogRepository,
	concurrency int,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*StatusService, error) {
	if logs == nil {
		return nil, fmt.Errorf("log repository is required")
	}
	if concurrency < minIngestConcurrency {
		concurrency = defaultIngestConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatusService{
		logs:        logs,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

// NormalizeEvents accepts a payload that is either a single event object or
// an array of events and returns them in input order. Each event keeps its
// original JSON in Raw. Per-event shape problems are deferred to Handle;
// only a payload that is neither object nor array fails here.
func NormalizeEvents(payload []byte) ([]domain.InboundEvent, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty webhook payload", domain.ErrValidation)
	}

	switch trimmed[0] {
	case '[':
		var rawEvents []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &rawEvents); err != nil {
			return nil, fmt.Errorf("%w: invalid webhook payload: %v", domain.ErrValidation, err)
		}

		events := make([]domain.InboundEvent, 0, len(rawEvents))
		for _, raw := range rawEvents {
			var event domain.InboundEvent
			if err := json.Unmarshal(raw, &event); err != nil {
				return nil, fmt.Errorf("%w: invalid event in webhook payload: %v", domain.ErrValidation, err)
			}
			event.Raw = raw
			events = append(events, event)
		}
		return events, nil
	case '{':
		var event domain.InboundEvent
		if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
			return nil, fmt.Errorf("%w: invalid webhook payload: %v", domain.ErrValidation, err)
		}
		event.Raw = json.RawMessage(trimmed)
		return []domain.InboundEvent{event}, nil
	default:
		return nil, fmt.Errorf("%w: webhook payload must be a JSON object or array", domain.ErrValidation)
	}
}

// Ingest normalizes the payload and processes every event independently,
// firing all of them and waiting for all to settle. Only a malformed
// top-level payload is a whole-call error; everything else lands in the
// returned BatchOutcome.
func (s *StatusService) Ingest(ctx context.Context, payload []byte) (*BatchOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	events, err := NormalizeEvents(payload)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]eventResult, len(events))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range events {
		g.Go(func() error {
			results[i] = s.processEvent(ctx, events[i])
			return nil
		})
	}
	_ = g.Wait()

	outcome := &BatchOutcome{Received: len(events)}
	for _, result := range results {
		switch {
		case result.err != nil:
			outcome.Failed++
			outcome.Failures = append(outcome.Failures, EventFailure{
				ExternalID: result.externalID,
				Reason:     result.err.Error(),
			})
		case result.skipped:
			outcome.Skipped++
		default:
			outcome.Succeeded++
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveIngest(outcome.Received, outcome.Succeeded, outcome.Skipped, outcome.Failed)
		s.metrics.ObserveIngestDuration(time.Since(start))
	}

	if outcome.Failed > 0 {
		s.logger.Warn("webhook batch processed with failures",
			zap.Int("received", outcome.Received),
			zap.Int("succeeded", outcome.Succeeded),
			zap.Int("skipped", outcome.Skipped),
			zap.Int("failed", outcome.Failed),
		)
	} else {
		s.logger.Info("webhook batch processed",
			zap.Int("received", outcome.Received),
			zap.Int("succeeded", outcome.Succeeded),
			zap.Int("skipped", outcome.Skipped),
		)
	}

	return outcome, nil
}

// Handle processes a single event: idempotency check, mapping, save.
// A duplicate (pre-check hit or save losing the race to the unique index)
// returns skipped=true with a nil error.
func (s *StatusService) Handle(ctx context.Context, event domain.InboundEvent) (skipped bool, err error) {
	result := s.processEvent(ctx, event)
	return result.skipped, result.err
}

func (s *StatusService) processEvent(ctx context.Context, event domain.InboundEvent) (result eventResult) {
	result.externalID = strings.TrimSpace(event.ExternalID)

	// An unexpected shape inside raw/metadata must fail this event only,
	// never the batch.
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("unexpected event shape: %v", r)
		}
	}()

	if result.externalID == "" {
		result.err = fmt.Errorf("%w: event is missing external id", domain.ErrValidation)
		return result
	}

	existing, err := s.logs.FindByExternalID(ctx, result.externalID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		result.err = err
		return result
	}
	if existing != nil {
		s.logger.Debug("event already processed, skipping",
			zap.String("externalId", result.externalID),
		)
		result.skipped = true
		return result
	}

	record := s.mapEventToLog(event)
	if err := s.logs.Save(ctx, record); err != nil {
		// The pre-check and the save are not atomic. Losing the save
		// race to the unique index is the same benign duplicate.
		if errors.Is(err, domain.ErrDuplicate) {
			s.logger.Debug("event saved concurrently elsewhere, skipping",
				zap.String("externalId", result.externalID),
			)
			result.skipped = true
			return result
		}
		result.err = err
		return result
	}

	s.logger.Debug("saved notification log",
		zap.String("externalId", result.externalID),
		zap.String("logId", record.ID),
	)
	return result
}

func (s *StatusService) mapEventToLog(event domain.InboundEvent) *domain.NotificationLog {
	// Status falls back to the event type so an event that only carries
	// type=message_delivered still yields a queryable status.
	status := event.Status
	if status == "" {
		status = event.EventType
	}

	occurredAt := parseEventTimestamp(event.Timestamp)
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}

	metadata := make(map[string]any, len(event.Metadata)+2)
	for k, v := range event.Metadata {
		metadata[k] = v
	}
	if event.EventType != "" {
		metadata["eventType"] = event.EventType
	}

	var providerID *string
	if event.Provider != nil {
		providerID = optionalString(event.Provider.ID)
		if event.Provider.Raw != nil {
			metadata["providerRaw"] = event.Provider.Raw
		}
	}

	raw := event.Raw
	if len(raw) == 0 {
		raw, _ = json.Marshal(event)
	}

	return &domain.NotificationLog{
		ID:            uuid.NewString(),
		ExternalID:    strings.TrimSpace(event.ExternalID),
		WorkflowID:    optionalString(event.WorkflowID),
		StepID:        optionalString(event.StepID),
		Channel:       optionalString(event.Channel),
		Status:        optionalString(status),
		SubscriberID:  optionalString(event.SubscriberID),
		ProviderID:    providerID,
		MessageID:     optionalString(event.MessageID),
		OccurredAt:    occurredAt,
		Metadata:      metadata,
		Raw:           raw,
		TenantID:      metadataString(event.Metadata, "tenantId"),
		TransactionID: metadataString(event.Metadata, "transactionId"),
		CorrelationID: metadataString(event.Metadata, "correlationId"),
	}
}

func parseEventTimestamp(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func metadataString(metadata map[string]any, key string) *string {
	if metadata == nil {
		return nil
	}
	value, ok := metadata[key].(string)
	if !ok {
		return nil
	}
	return optionalString(value)
}
