package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/relayforge/novu-bridge/internal/service"
)

const signatureHeader = "x-novu-signature"

// StatusIngestor ingests one raw webhook payload into the status log.
type StatusIngestor interface {
	Ingest(ctx context.Context, payload []byte) (*service.BatchOutcome, error)
}

type WebhookHandler struct {
	ingestor StatusIngestor
	secret   string
}

// NewWebhookHandler builds the inbound webhook handler. An empty secret
// disables signature verification.
func NewWebhookHandler(ingestor StatusIngestor, secret string) (*WebhookHandler, error) {
	if ingestor == nil {
		return nil, fmt.Errorf("status ingestor is required")
	}
	return &WebhookHandler{ingestor: ingestor, secret: secret}, nil
}

func RegisterWebhookRoutes(router fiber.Router, ingestor StatusIngestor, secret string) error {
	h, err := NewWebhookHandler(ingestor, secret)
	if err != nil {
		return err
	}

	router.Post("/internal/webhooks/novu", h.HandleWebhook)

	return nil
}

type webhookResponse struct {
	Received  int `json:"received"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// HandleWebhook ingests a status event batch. Per-event problems never fail
// the request; the orchestrator should not redeliver a batch because one
// event in it was bad.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()

	if h.secret != "" {
		if !h.verifySignature(body, c.Get(signatureHeader)) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook signature")
		}
	}

	outcome, err := h.ingestor.Ingest(c.Context(), body)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(webhookResponse{
		Received:  outcome.Received,
		Processed: outcome.Succeeded,
		Skipped:   outcome.Skipped,
		Failed:    outcome.Failed,
	})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
