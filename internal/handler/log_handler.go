package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/relayforge/novu-bridge/internal/domain"
	"github.com/relayforge/novu-bridge/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

// LogQuerier reads the status log written by the ingestion path.
type LogQuerier interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.NotificationLog, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.NotificationLog, int64, error)
}

type LogHandler struct {
	logs LogQuerier
}

func NewLogHandler(logs LogQuerier) (*LogHandler, error) {
	if logs == nil {
		return nil, fmt.Errorf("log querier is required")
	}
	return &LogHandler{logs: logs}, nil
}

func RegisterLogRoutes(router fiber.Router, logs LogQuerier) error {
	h, err := NewLogHandler(logs)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/logs", h.ListLogs)
	v1.Get("/logs/:externalId", h.GetLog)

	return nil
}

type logResponse struct {
	ID            string          `json:"id"`
	ExternalID    string          `json:"externalId"`
	WorkflowID    *string         `json:"workflowId,omitempty"`
	StepID        *string         `json:"stepId,omitempty"`
	Channel       *string         `json:"channel,omitempty"`
	Status        *string         `json:"status,omitempty"`
	SubscriberID  *string         `json:"subscriberId,omitempty"`
	ProviderID    *string         `json:"providerId,omitempty"`
	MessageID     *string         `json:"messageId,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
	TenantID      *string         `json:"tenantId,omitempty"`
	TransactionID *string         `json:"transactionId,omitempty"`
	CorrelationID *string         `json:"correlationId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type listLogsResponse struct {
	Data []logResponse `json:"data"`
	Meta listMeta      `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *LogHandler) GetLog(c *fiber.Ctx) error {
	externalID := strings.TrimSpace(c.Params("externalId"))
	if externalID == "" {
		return toHTTPError(fmt.Errorf("%w: externalId is required", domain.ErrValidation))
	}

	log, err := h.logs.FindByExternalID(c.Context(), externalID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toLogResponse(log))
}

func (h *LogHandler) ListLogs(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	logs, total, err := h.logs.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]logResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, toLogResponse(&logs[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listLogsResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		params.Status = &status
	}
	if subscriberID := strings.TrimSpace(c.Query("subscriberId")); subscriberID != "" {
		params.SubscriberID = &subscriberID
	}
	if workflowID := strings.TrimSpace(c.Query("workflowId")); workflowID != "" {
		params.WorkflowID = &workflowID
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toLogResponse(log *domain.NotificationLog) logResponse {
	if log == nil {
		return logResponse{}
	}

	return logResponse{
		ID:            log.ID,
		ExternalID:    log.ExternalID,
		WorkflowID:    log.WorkflowID,
		StepID:        log.StepID,
		Channel:       log.Channel,
		Status:        log.Status,
		SubscriberID:  log.SubscriberID,
		ProviderID:    log.ProviderID,
		MessageID:     log.MessageID,
		OccurredAt:    log.OccurredAt,
		Metadata:      log.Metadata,
		Raw:           log.Raw,
		TenantID:      log.TenantID,
		TransactionID: log.TransactionID,
		CorrelationID: log.CorrelationID,
		CreatedAt:     log.CreatedAt,
	}
}
