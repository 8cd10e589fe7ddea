package eventmobi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
	"github.com/thorbengrosser/eventheartbeat/internal/metrics"
)

const (
	acceptHeader   = "application/vnd.eventmobi+json; version=4"
	defaultTimeout = 30 * time.Second

	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// Client talks to the EventMobi Unified API. It is safe for concurrent use
// and carries no credential state: the API key travels with each call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for the given API base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "eventmobi",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			metrics.UpstreamBreakerState.Set(float64(to))
			slog.Warn("EventMobi circuit breaker state change", "state", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Caller mistakes (bad key, missing resource) must not open
			// the breaker for everyone else.
			return err == nil || isCallerError(err)
		},
	})

	return c
}

func isCallerError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
	}
	return false
}

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Operation  string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eventmobi %s: HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Unwrap maps well-known status codes onto domain sentinels so callers can
// use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrInvalidCredential
	case http.StatusNotFound:
		return domain.ErrNotFound
	}
	return nil
}

// envelope is the common response wrapper: a data payload of varying shape
// plus pagination metadata.
type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination struct {
			TotalItemsCount int `json:"total_items_count"`
		} `json:"pagination"`
	} `json:"meta"`
}

// request performs one API call through the circuit breaker. body may be
// nil; the parsed envelope is returned for 2xx responses.
func (c *Client) request(ctx context.Context, apiKey, method, endpoint string, query url.Values, body any) (*envelope, error) {
	operation := method + " " + endpoint
	start := time.Now()

	result, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, apiKey, method, endpoint, query, body)
	})

	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("eventmobi %s: upstream unavailable: %w", operation, err)
		}
		return nil, err
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "ok").Inc()

	return result.(*envelope), nil
}

func (c *Client) doRequest(ctx context.Context, apiKey, method, endpoint string, query url.Values, body any) (*envelope, error) {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("eventmobi %s: marshal body: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("eventmobi %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eventmobi %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("eventmobi %s: read response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := string(raw)
		if len(detail) > 500 {
			detail = detail[:500]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Operation: endpoint, Body: detail}
	}

	env := &envelope{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, env); err != nil {
		// Some endpoints answer with a bare array instead of the wrapper.
		if json.Unmarshal(raw, &env.Data) == nil && len(env.Data) > 0 {
			return env, nil
		}
		return nil, fmt.Errorf("eventmobi %s: decode response: %w", endpoint, err)
	}
	return env, nil
}
