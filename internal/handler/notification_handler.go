package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/relayforge/novu-bridge/internal/domain"
	"github.com/relayforge/novu-bridge/internal/provider"
)

type NotificationService interface {
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

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.TriggerNotification)
	v1.Post("/notifications/bulk", h.TriggerBulk)
	v1.Post("/subscribers", h.CreateSubscriber)
	v1.Put("/subscribers/:subscriberId", h.UpdateSubscriber)
	v1.Get("/subscribers/:subscriberId/preferences", h.GetSubscriberPreferences)
	v1.Patch("/subscribers/:subscriberId/preferences", h.UpdateSubscriberPreferences)
	v1.Post("/workflows", h.CreateWorkflow)
	v1.Put("/workflows/:workflowId", h.UpdateWorkflow)
	v1.Delete("/workflows/:workflowId", h.DeleteWorkflow)

	return nil
}

type triggerBulkRequest struct {
	Events []domain.TriggerEvent `json:"events"`
}

type triggerBulkResponse struct {
	Results []domain.TriggerResult `json:"results"`
}

func (h *NotificationHandler) TriggerNotification(c *fiber.Ctx) error {
	var event domain.TriggerEvent
	if err := c.BodyParser(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Trigger(c.Context(), event)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}

func (h *NotificationHandler) TriggerBulk(c *fiber.Ctx) error {
	var req triggerBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if len(req.Events) == 0 {
		return toHTTPError(fmt.Errorf("%w: events is required", domain.ErrValidation))
	}

	results, err := h.service.TriggerBulk(c.Context(), req.Events)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(triggerBulkResponse{Results: results})
}

func (h *NotificationHandler) CreateSubscriber(c *fiber.Ctx) error {
	var subscriber domain.Subscriber
	if err := c.BodyParser(&subscriber); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.CreateSubscriber(c.Context(), subscriber)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *NotificationHandler) UpdateSubscriber(c *fiber.Ctx) error {
	var subscriber domain.Subscriber
	if err := c.BodyParser(&subscriber); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.UpdateSubscriber(c.Context(), subscriberIDParam(c), subscriber)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) GetSubscriberPreferences(c *fiber.Ctx) error {
	preferences, err := h.service.GetSubscriberPreferences(c.Context(), subscriberIDParam(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(preferences)
}

func (h *NotificationHandler) UpdateSubscriberPreferences(c *fiber.Ctx) error {
	var preferences domain.SubscriberPreferences
	if err := c.BodyParser(&preferences); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.UpdateSubscriberPreferences(c.Context(), subscriberIDParam(c), preferences)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(updated)
}

func (h *NotificationHandler) CreateWorkflow(c *fiber.Ctx) error {
	var definition domain.WorkflowDefinition
	if err := c.BodyParser(&definition); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.CreateWorkflow(c.Context(), definition)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *NotificationHandler) UpdateWorkflow(c *fiber.Ctx) error {
	var update domain.WorkflowUpdate
	if err := c.BodyParser(&update); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.UpdateWorkflow(c.Context(), strings.TrimSpace(c.Params("workflowId")), update)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) DeleteWorkflow(c *fiber.Ctx) error {
	workflowID := strings.TrimSpace(c.Params("workflowId"))
	if err := h.service.DeleteWorkflow(c.Context(), workflowID); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"workflowId": workflowID,
		"deleted":    true,
	})
}

func subscriberIDParam(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Params("subscriberId"))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, provider.ErrNotSupported):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
