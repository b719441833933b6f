package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oukeidos/kamekai/internal/apperrors"
	"github.com/oukeidos/kamekai/internal/httpclient"
)

const (
	translatePath = "/translate"
	healthPath    = "/health"
)

// Client calls the translation service.
type Client struct {
	baseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/")}
}

// Endpoint returns the base URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.baseURL
}

// Translate sends text to POST /translate authorized by credential.
func (c *Client) Translate(ctx context.Context, credential, text string) (*Response, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, apperrors.CredentialMissing()
	}

	jsonData, err := json.Marshal(Request{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+translatePath, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)
	httpReq.Header.Set("X-Request-ID", requestID)

	body, resp, err := httpclient.DoAndRead(httpclient.GetDefaultClient(), httpReq)
	if resp == nil {
		if err == nil {
			err = fmt.Errorf("no response")
		}
		return nil, apperrors.Transport(fmt.Errorf("request failed: %w", err))
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		slog.Debug("Translation request rejected", "status_code", resp.StatusCode, "request_id", requestID)
		return nil, classifyStatus(resp.StatusCode, resp.Status)
	}
	if httpclient.IsBodyTooLarge(err) {
		return nil, apperrors.Protocol("Failed to parse translation response: response is too large.", err)
	}
	if err != nil {
		return nil, apperrors.Protocol("Failed to parse translation response: body could not be read.", err)
	}

	result, err := parseResponse(body)
	if err != nil {
		return nil, err
	}
	slog.Debug("Translation response", "status_code", resp.StatusCode, "translations", len(result.Translations), "request_id", requestID)
	return result, nil
}

// Health calls GET /health and reports whether the service answered 2xx.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	_, resp, err := httpclient.DoAndRead(httpclient.GetDefaultClient(), httpReq)
	if resp == nil {
		return apperrors.Transport(fmt.Errorf("health check failed: %w", err))
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return apperrors.Protocol(fmt.Sprintf("Translation service is unhealthy (HTTP %d).", resp.StatusCode), nil)
	}
	return nil
}

func parseResponse(body []byte) (*Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		detail := strings.TrimPrefix(err.Error(), "json: ")
		return nil, apperrors.Protocol("Failed to parse translation response: "+detail, err)
	}
	if wire.Translations == nil {
		return nil, apperrors.Protocol(`Failed to parse translation response: missing "translations" field`, nil)
	}
	return &Response{Translations: *wire.Translations}, nil
}

func classifyStatus(statusCode int, status string) error {
	cause := fmt.Errorf("translate status=%s", status)

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperrors.Protocol(
			fmt.Sprintf("Translation service rejected the credential (HTTP %d). Please sign in again.", statusCode),
			cause,
		)
	case statusCode == http.StatusTooManyRequests:
		return apperrors.Protocol(
			fmt.Sprintf("Translation service is busy (HTTP %d).", statusCode),
			cause,
		)
	case statusCode >= 500:
		return apperrors.Protocol(
			fmt.Sprintf("Translation service error (HTTP %d).", statusCode),
			cause,
		)
	default:
		return apperrors.Protocol(
			fmt.Sprintf("Translation request failed (HTTP %d).", statusCode),
			cause,
		)
	}
}
