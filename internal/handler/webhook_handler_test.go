package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/relayforge/novu-bridge/internal/service"
	"github.com/relayforge/novu-bridge/internal/transport"
)

type stubIngestor struct {
	ingestFn func(ctx context.Context, payload []byte) (*service.BatchOutcome, error)
}

func (s *stubIngestor) Ingest(ctx context.Context, payload []byte) (*service.BatchOutcome, error) {
	return s.ingestFn(ctx, payload)
}

func newWebhookTestApp(t *testing.T, ingestor StatusIngestor, secret string) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterWebhookRoutes(app, ingestor, secret); err != nil {
		t.Fatalf("RegisterWebhookRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func TestWebhookHandler_BatchOutcome(t *testing.T) {
	t.Parallel()

	ingestor := &stubIngestor{
		ingestFn: func(ctx context.Context, payload []byte) (*service.BatchOutcome, error) {
			return &service.BatchOutcome{Received: 3, Succeeded: 1, Skipped: 1, Failed: 1}, nil
		},
	}

	app := newWebhookTestApp(t, ingestor, "")

	body := `[{"id":"evt-1"},{"id":"evt-1"},{"type":"workflow.completed"}]`
	resp, respBody := performRequest(t, app, http.MethodPost, "/internal/webhooks/novu", body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(respBody))
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["received"] != float64(3) {
		t.Fatalf("received = %v, want 3", parsed["received"])
	}
	if parsed["processed"] != float64(1) {
		t.Fatalf("processed = %v, want 1", parsed["processed"])
	}
	if parsed["skipped"] != float64(1) {
		t.Fatalf("skipped = %v, want 1", parsed["skipped"])
	}
	if parsed["failed"] != float64(1) {
		t.Fatalf("failed = %v, want 1", parsed["failed"])
	}
}

func TestWebhookHandler_MalformedPayload(t *testing.T) {
	t.Parallel()

	ingestor := &stubIngestor{
		ingestFn: func(ctx context.Context, payload []byte) (*service.BatchOutcome, error) {
			if _, err := service.NormalizeEvents(payload); err != nil {
				return nil, err
			}
			return &service.BatchOutcome{}, nil
		},
	}

	app := newWebhookTestApp(t, ingestor, "")

	resp, _ := performRequest(t, app, http.MethodPost, "/internal/webhooks/novu", `"just a string"`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for non-object payload", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/internal/webhooks/novu", `{broken`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for broken JSON", resp.StatusCode)
	}
}

func TestWebhookHandler_SignatureVerification(t *testing.T) {
	t.Parallel()

	const secret = "whsec-test"

	ingestor := &stubIngestor{
		ingestFn: func(ctx context.Context, payload []byte) (*service.BatchOutcome, error) {
			return &service.BatchOutcome{Received: 1, Succeeded: 1}, nil
		},
	}

	app := newWebhookTestApp(t, ingestor, secret)

	body := `{"id":"evt-1","type":"message.sent"}`

	resp, _ := performRequest(t, app, http.MethodPost, "/internal/webhooks/novu", body)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without signature", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/webhooks/novu", bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(signatureHeader, "deadbeef")
	badResp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if badResp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for bad signature", badResp.StatusCode)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	signature := hex.EncodeToString(mac.Sum(nil))

	req = httptest.NewRequest(http.MethodPost, "/internal/webhooks/novu", bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(signatureHeader, signature)
	goodResp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if goodResp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 for valid signature", goodResp.StatusCode)
	}
}
