package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

const maxErrorBodyBytes = 4096

// ErrUnexpectedStatus is wrapped by HTTPError for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// HTTPError reports a non-2xx response from the lineage endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.StatusCode)
	}

	return fmt.Sprintf("%s: %d: %s", ErrUnexpectedStatus, e.StatusCode, e.Body)
}

// Unwrap lets callers match any HTTPError with errors.Is(err, ErrUnexpectedStatus).
func (e *HTTPError) Unwrap() error {
	return ErrUnexpectedStatus
}

// HTTPTransport POSTs each event as JSON to {url}/{endpoint}.
type HTTPTransport struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewHTTPTransport creates an HTTPTransport from a validated http TransportConfig.
func NewHTTPTransport(cfg TransportConfig) *HTTPTransport {
	return &HTTPTransport{
		client:   &http.Client{Timeout: cfg.TimeoutDuration()},
		endpoint: joinEndpoint(cfg.URL, cfg.Endpoint),
		apiKey:   cfg.Auth.APIKey,
	}
}

// Endpoint returns the full URL events are posted to.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Emit sends one event. Any transport failure or non-2xx status is returned as an error.
func (t *HTTPTransport) Emit(ctx context.Context, event *openlineage.RunEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send event to %s: %w", t.endpoint, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()

	return nil
}

func joinEndpoint(base, endpoint string) string {
	joined, err := url.JoinPath(base, endpoint)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
	}

	return joined
}
