package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	apierrors "github.com/diogo/medimate/internal/errors"
	"github.com/diogo/medimate/internal/models"
)

// maxBodySize caps how much of a response is read
const maxBodySize = 1 << 20

// maxErrorBody caps the body kept on an APIError for diagnostics
const maxErrorBody = 4096

// Send posts prompt to the chat endpoint and returns the assistant reply.
// ctx bounds the request; a deadline becomes a TimeoutError and a
// cancellation is returned wrapping context.Canceled.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	if c.IsClosed() {
		return "", fmt.Errorf("client is closed")
	}

	payload, err := json.Marshal(models.ChatRequest{Message: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}

	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.AddCookie(&http.Cookie{Name: models.SessionCookieName, Value: token})
		}
	}

	c.logger.Debug("sending chat request",
		zap.String("endpoint", c.endpoint),
		zap.Int("prompt_bytes", len(prompt)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.transportError(ctx, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", c.transportError(ctx, err)
	}

	out, err := parseChatResponse(resp.StatusCode, body, c.endpoint)
	if err != nil {
		c.logger.Debug("chat request failed",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return "", err
	}

	c.logger.Debug("chat reply received",
		zap.Int("status", resp.StatusCode),
		zap.Int("reply_bytes", len(out.Response)))

	return out.Text(), nil
}

// transportError classifies an error raised before a response was read
func (c *Client) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apierrors.NewTimeoutError(c.endpoint)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("chat request canceled: %w", context.Canceled)
	default:
		return apierrors.NewNetworkErrorWithEndpoint("chat", c.endpoint, err)
	}
}

// parseChatResponse decodes a chat endpoint reply.
// On 2xx the body must carry a string "response". Otherwise the "error" field
// is used as the message, falling back to models.DefaultFailureMessage.
func parseChatResponse(status int, body []byte, endpoint string) (*models.ChatResponse, error) {
	if status < 200 || status > 299 {
		msg := models.DefaultFailureMessage
		if gjson.ValidBytes(body) {
			if e := gjson.GetBytes(body, "error"); e.Type == gjson.String && e.String() != "" {
				msg = e.String()
			}
		}
		kept := body
		if len(kept) > maxErrorBody {
			kept = kept[:maxErrorBody]
		}
		return nil, apierrors.NewAPIErrorWithBody(status, endpoint, msg, string(kept))
	}

	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response body is not valid JSON", "")
	}

	r := gjson.GetBytes(body, "response")
	if !r.Exists() {
		return nil, apierrors.NewParseError("missing field", "response")
	}
	if r.Type != gjson.String {
		return nil, apierrors.NewParseError("expected a string, got "+r.Type.String(), "response")
	}

	return &models.ChatResponse{Response: r.String()}, nil
}
