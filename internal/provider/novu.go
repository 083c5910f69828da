package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/relayforge/novu-bridge/internal/domain"
)

const (
	// DefaultServerURL is the Novu cloud API endpoint.
	DefaultServerURL = "https://api.novu.co"

	defaultRequestTimeout = 15 * time.Second
)

// triggerRequest is the /v1/events/trigger wire shape. The workflow id is
// called "name" on the wire for historical Novu reasons.
type triggerRequest struct {
	Name          string            `json:"name"`
	To            domain.Subscriber `json:"to"`
	Payload       map[string]any    `json:"payload,omitempty"`
	Overrides     *domain.Overrides `json:"overrides,omitempty"`
	TransactionID string            `json:"transactionId,omitempty"`
}

type triggerBulkRequest struct {
	Events []triggerRequest `json:"events"`
}

type triggerResponseData struct {
	Acknowledged  bool   `json:"acknowledged"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}

type apiErrorResponse struct {
	Message any    `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type workflowStepRequest struct {
	Name          string                   `json:"name"`
	Type          string                   `json:"type"`
	ControlValues domain.StepControlValues `json:"controlValues"`
}

type workflowRequest struct {
	WorkflowID  string                `json:"workflowId,omitempty"`
	Name        string                `json:"name,omitempty"`
	Description string                `json:"description,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Steps       []workflowStepRequest `json:"steps,omitempty"`
}

type workflowResponseData struct {
	ID          string   `json:"_id"`
	AltID       string   `json:"id"`
	WorkflowID  string   `json:"workflowId"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Active      bool     `json:"active"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// NovuProvider adapts the NotificationProvider port to the Novu REST API.
type NovuProvider struct {
	client *resty.Client
}

func NewNovuProvider(apiKey, serverURL string) (*NovuProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultRequestTimeout)
	client.SetRetryCount(0)

	return NewNovuProviderWithClient(apiKey, serverURL, client)
}

func NewNovuProviderWithClient(apiKey, serverURL string, client *resty.Client) (*NovuProvider, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, fmt.Errorf("novu api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	baseURL := strings.TrimSpace(serverURL)
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid novu server url: %w", err)
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultRequestTimeout)
	}
	client.SetRetryCount(0)
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("Authorization", "ApiKey "+trimmedKey)
	client.SetHeader("Content-Type", "application/json")

	return &NovuProvider{client: client}, nil
}

// Trigger fires one workflow. API-level failures are folded into the
// TriggerResult the way Novu's own SDK reports them; only transport-level
// problems surface as Go errors.
func (p *NovuProvider) Trigger(ctx context.Context, event domain.TriggerEvent) (*domain.TriggerResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	var parsed struct {
		Data triggerResponseData `json:"data"`
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBody(toTriggerRequest(event)).
		SetResult(&parsed).
		Post("/v1/events/trigger")
	if err != nil {
		return nil, &ProviderError{Operation: "trigger", Transient: true, Cause: err}
	}

	if response.IsError() {
		return &domain.TriggerResult{
			Acknowledged: false,
			Status:       domain.TriggerStatusError,
			Error: &domain.TriggerErrorInfo{
				Message: apiErrorMessage(response),
				Code:    fmt.Sprintf("HTTP_%d", response.StatusCode()),
			},
		}, nil
	}

	return &domain.TriggerResult{
		Acknowledged:  parsed.Data.Acknowledged,
		Status:        normalizeTriggerStatus(parsed.Data.Status),
		TransactionID: parsed.Data.TransactionID,
	}, nil
}

func (p *NovuProvider) TriggerBulk(ctx context.Context, events []domain.TriggerEvent) ([]domain.TriggerResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if len(events) == 0 {
		return []domain.TriggerResult{}, nil
	}

	body := triggerBulkRequest{Events: make([]triggerRequest, 0, len(events))}
	for _, event := range events {
		if err := event.Validate(); err != nil {
			return nil, err
		}
		body.Events = append(body.Events, toTriggerRequest(event))
	}

	var parsed struct {
		Data []triggerResponseData `json:"data"`
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&parsed).
		Post("/v1/events/trigger/bulk")
	if err != nil {
		return nil, &ProviderError{Operation: "trigger_bulk", Transient: true, Cause: err}
	}
	if response.IsError() {
		return nil, p.apiError("trigger_bulk", response)
	}

	results := make([]domain.TriggerResult, 0, len(parsed.Data))
	for _, data := range parsed.Data {
		results = append(results, domain.TriggerResult{
			Acknowledged:  data.Acknowledged,
			Status:        normalizeTriggerStatus(data.Status),
			TransactionID: data.TransactionID,
		})
	}
	return results, nil
}

func (p *NovuProvider) CreateSubscriber(ctx context.Context, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
	if err := subscriber.Validate(); err != nil {
		return nil, err
	}

	var parsed struct {
		Data domain.SubscriberResult `json:"data"`
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBody(subscriber).
		SetResult(&parsed).
		Post("/v1/subscribers")
	if err != nil {
		return nil, &ProviderError{Operation: "create_subscriber", Transient: true, Cause: err}
	}
	if response.IsError() {
		return nil, p.apiError("create_subscriber", response)
	}

	return &parsed.Data, nil
}

func (p *NovuProvider) UpdateSubscriber(ctx context.Context, subscriberID string, subscriber domain.Subscriber) (*domain.SubscriberResult, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, fmt.Errorf("%w: subscriberId is required", domain.ErrValidation)
	}

	var parsed struct {
		Data domain.SubscriberResult `json:"data"`
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBody(subscriber).
		SetResult(&parsed).
		Put("/v1/subscribers/" + url.PathEscape(subscriberID))
	if err != nil {
		return nil, &ProviderError{Operation: "update_subscriber", Transient: true, Cause: err}
	}
	if response.IsError() {
		return nil, p.apiError("update_subscriber", response)
	}

	return &parsed.Data, nil
}

func (p *NovuProvider) GetSubscriberPreferences(ctx context.Context, subscriberID string) (*domain.SubscriberPreferences, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, fmt.Errorf("%w: subscriberId is required", domain.ErrValidation)
	}

	var parsed struct {
		Data domain.SubscriberPreferences `json:"data"`
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetResult(&parsed).
		Get("/v1/subscribers/" + url.PathEscape(subscriberID) + "/preferences")
	if err != nil {
		return nil, &ProviderError{Operation: "get_preferences", Transient: true, Cause: err}
	}
	if response.IsError() {
		return nil, p.apiError("get_preferences", response)
	}

	return &parsed.Data, nil
}

func (p *NovuProvider) UpdateSubscriberPreferences(ctx context.Context, subscriberID string, preferences domain.SubscriberPreferences) (*domain.SubscriberPreferences, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, fmt.Errorf("%w: subscriberId is required", domain.ErrValidation)
	}

	var parsed struct {
		Data domain.SubscriberPreferences `json:"data"`
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBody(preferences).
		SetResult(&parsed).
		Patch("/v1/subscribers/" + url.PathEscape(subscriberID) + "/preferences")
	if err != nil {
		return nil, &ProviderError{Operation: "update_preferences", Transient: true, Cause: err}
	}
	if response.IsError() {
		return nil, p.apiError("update_preferences", response)
	}

	return &parsed.Data, nil
}

func (p *NovuProvider) CreateWorkflow(ctx context.Context, definition domain.WorkflowDefinition) (*domain.WorkflowResult, error) {
	if err := definition.Validate(); err != nil {
		return nil, err
	}

	var parsed struct {
		Data workflowResponseData `json:"data"`
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBody(toWorkflowRequest(definition.WorkflowID, definition.Name, definition.Description, definition.Tags, definition.Steps)).
		SetResult(&parsed).
		Post("/v2/workflows")
	if err != nil {
		return nil, &ProviderError{Operation: "create_workflow", Transient: true, Cause: err}
	}
	if response.IsError() {
		return nil, p.apiError("create_workflow", response)
	}

	return toWorkflowResult(parsed.Data), nil
}

func (p *NovuProvider) UpdateWorkflow(ctx context.Context, workflowID string, update domain.WorkflowUpdate) (*domain.WorkflowResult, error) {
	if strings.TrimSpace(workflowID) == "" {
		return nil, fmt.Errorf("%w: workflowId is required", domain.ErrValidation)
	}

	var parsed struct {
		Data workflowResponseData `json:"data"`
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBody(toWorkflowRequest("", update.Name, update.Description, update.Tags, update.Steps)).
		SetResult(&parsed).
		Put("/v2/workflows/" + url.PathEscape(workflowID))
	if err != nil {
		return nil, &ProviderError{Operation: "update_workflow", Transient: true, Cause: err}
	}
	if response.IsError() {
		return nil, p.apiError("update_workflow", response)
	}

	return toWorkflowResult(parsed.Data), nil
}

func (p *NovuProvider) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if strings.TrimSpace(workflowID) == "" {
		return fmt.Errorf("%w: workflowId is required", domain.ErrValidation)
	}

	response, err := p.client.R().
		SetContext(ctx).
		Delete("/v2/workflows/" + url.PathEscape(workflowID))
	if err != nil {
		return &ProviderError{Operation: "delete_workflow", Transient: true, Cause: err}
	}
	if response.IsError() {
		return p.apiError("delete_workflow", response)
	}

	return nil
}

func (p *NovuProvider) apiError(operation string, response *resty.Response) error {
	return &ProviderError{
		Operation:  operation,
		StatusCode: response.StatusCode(),
		Message:    apiErrorMessage(response),
		Transient:  transientStatus(response.StatusCode()),
	}
}

func apiErrorMessage(response *resty.Response) string {
	var parsed apiErrorResponse
	if err := json.Unmarshal(response.Body(), &parsed); err == nil {
		switch message := parsed.Message.(type) {
		case string:
			if message != "" {
				return message
			}
		case []any:
			parts := make([]string, 0, len(message))
			for _, part := range message {
				if s, ok := part.(string); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	return strings.TrimSpace(response.Status())
}

func normalizeTriggerStatus(status string) domain.TriggerStatus {
	if status == string(domain.TriggerStatusProcessed) {
		return domain.TriggerStatusProcessed
	}
	return domain.TriggerStatusError
}

func toTriggerRequest(event domain.TriggerEvent) triggerRequest {
	return triggerRequest{
		Name:          event.WorkflowID,
		To:            event.To,
		Payload:       event.Payload,
		Overrides:     event.Overrides,
		TransactionID: event.TransactionID,
	}
}

func toWorkflowRequest(workflowID, name, description string, tags []string, steps []domain.WorkflowStep) workflowRequest {
	request := workflowRequest{
		WorkflowID:  workflowID,
		Name:        name,
		Description: description,
		Tags:        tags,
	}
	for _, step := range steps {
		request.Steps = append(request.Steps, workflowStepRequest{
			Name:          step.Name,
			Type:          step.Type.String(),
			ControlValues: step.ControlValues,
		})
	}
	return request
}

func toWorkflowResult(data workflowResponseData) *domain.WorkflowResult {
	id := data.ID
	if id == "" {
		id = data.AltID
	}

	return &domain.WorkflowResult{
		ID:          id,
		WorkflowID:  data.WorkflowID,
		Name:        data.Name,
		Description: data.Description,
		Tags:        data.Tags,
		Active:      data.Active,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}
