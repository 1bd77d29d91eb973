package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

const maxResponseSize = 8 << 20

var _ service.Transport = (*RelayClient)(nil)

// RelayClient talks to the relay's /api endpoints. It never retries and has
// no deadline of its own; the caller's context bounds every call.
type RelayClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRelayClient(baseURL string) *RelayClient {
	return &RelayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// WithHTTPClient swaps the underlying client, mostly for tests.
func (c *RelayClient) WithHTTPClient(hc *http.Client) *RelayClient {
	c.httpClient = hc
	return c
}

type chatResponse struct {
	Response *string `json:"response"`
	Error    string  `json:"error"`
}

// Send posts req to /api/chat and returns the assistant text.
func (c *RelayClient) Send(ctx context.Context, req service.ChatRequest) (string, error) {
	if req.IsEmpty() {
		return "", domain.ErrEmptyRequest
	}

	body, contentType, err := req.Encode()
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.RelayError{Message: "could not reach the relay", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &domain.RelayError{Status: resp.StatusCode, Message: domain.DefaultRelayMessage, Err: err}
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parsed.Error
		if decodeErr != nil || msg == "" {
			msg = domain.DefaultRelayMessage
		}
		return "", &domain.RelayError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &domain.RelayError{Status: resp.StatusCode, Message: domain.DefaultRelayMessage, Err: decodeErr}
	}
	if parsed.Error != "" {
		return "", &domain.RelayError{Status: resp.StatusCode, Message: parsed.Error}
	}
	if parsed.Response == nil || *parsed.Response == "" {
		return "", &domain.RelayError{Status: resp.StatusCode, Message: domain.DefaultRelayMessage}
	}
	return *parsed.Response, nil
}

func (c *RelayClient) Health(ctx context.Context) (*domain.HealthStatus, error) {
	var h domain.HealthStatus
	if err := c.getJSON(ctx, "/api/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *RelayClient) Models(ctx context.Context) ([]domain.AIModel, error) {
	var out struct {
		Models []domain.AIModel `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/models", &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

func (c *RelayClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.RelayError{Message: "could not reach the relay", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		msg := domain.DefaultRelayMessage
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &domain.RelayError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// IsUnreachable reports whether err means the relay never answered.
func IsUnreachable(err error) bool {
	var re *domain.RelayError
	return errors.As(err, &re) && re.Status == 0
}
