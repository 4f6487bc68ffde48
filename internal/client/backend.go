package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/auth"
	"github.com/ashendes/order-edit/internal/config"
	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/ashendes/order-edit/internal/patterns"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Backend is the shared connection to the platform REST API
type Backend struct {
	http          *resty.Client
	baseURL       string
	tokens        auth.TokenProvider
	maxConcurrent int

	mu       sync.Mutex
	circuits []*patterns.CircuitBreakerWrapper
}

// NewBackend creates a backend connection from cfg
func NewBackend(cfg config.BackendConfig, tokens auth.TokenProvider) *Backend {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = patterns.DefaultTimeout
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Backend{
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0), // No automatic retries, failures go through the circuit breaker
		baseURL:       cfg.BaseURL,
		tokens:        tokens,
		maxConcurrent: maxConcurrent,
	}
}

// collaborator is one backend API area with its own circuit breaker and bulkhead
type collaborator struct {
	backend  *Backend
	name     string
	circuit  *patterns.CircuitBreakerWrapper
	bulkhead *patterns.Bulkhead
}

func (b *Backend) collaborator(name string) *collaborator {
	c := &collaborator{
		backend:  b,
		name:     name,
		circuit:  patterns.NewCircuitBreaker(name, patterns.ServiceName),
		bulkhead: patterns.NewBulkhead(b.maxConcurrent, name, patterns.ServiceName),
	}

	b.mu.Lock()
	b.circuits = append(b.circuits, c.circuit)
	b.mu.Unlock()
	return c
}

// CircuitStatus is the state of one collaborator circuit breaker
type CircuitStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Value int    `json:"value"`
}

// Circuits reports the circuit breaker state of every collaborator
func (b *Backend) Circuits() []CircuitStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]CircuitStatus, 0, len(b.circuits))
	for _, cb := range b.circuits {
		out = append(out, CircuitStatus{Name: cb.Name(), State: cb.GetState(), Value: cb.GetStateValue()})
	}
	return out
}

// call performs one request and decodes the envelope's data into out.
// Client errors are returned as *APIError without counting against the circuit.
func (c *collaborator) call(ctx context.Context, method, path string, body, out interface{}) error {
	start := time.Now()

	token, err := c.backend.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	requestID := RequestID(ctx)

	var callErr error
	err = c.bulkhead.Execute(ctx, func() error {
		_, cbErr := c.circuit.Execute(func() (interface{}, error) {
			req := c.backend.http.R().
				SetContext(ctx).
				SetHeader("Accept", "application/json").
				SetHeader("X-Request-ID", requestID)
			if token != "" {
				req.SetAuthToken(token)
			}
			if body != nil {
				req.SetHeader("Content-Type", "application/json").SetBody(body)
			}

			resp, httpErr := req.Execute(method, c.backend.baseURL+path)
			if httpErr != nil {
				return nil, fmt.Errorf("HTTP error: %w", httpErr)
			}

			if resp.StatusCode() >= http.StatusBadRequest {
				apiErr := c.apiError(resp.StatusCode(), resp.Body())
				if apiErr.Temporary() {
					return nil, apiErr
				}
				callErr = apiErr
				return nil, nil
			}

			callErr = c.decode(resp.StatusCode(), resp.Body(), out)
			return nil, nil
		})

		return patterns.FormatError(c.name, cbErr)
	})
	if err == nil {
		err = callErr
	}

	metrics.ObserveCall(c.name, start, err)
	if err != nil {
		log.WithFields(log.Fields{
			"collaborator": c.name,
			"method":       method,
			"path":         path,
			"request_id":   requestID,
		}).Warn("Collaborator call failed: ", err)
	}
	return err
}

func (c *collaborator) decode(status int, raw []byte, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, c.name, err)
	}
	if !env.Success {
		return &APIError{Collaborator: c.name, StatusCode: status, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, c.name, err)
	}
	return nil
}

func (c *collaborator) apiError(status int, raw []byte) *APIError {
	apiErr := &APIError{Collaborator: c.name, StatusCode: status, Message: http.StatusText(status)}

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		apiErr.Message = env.Message
	}
	return apiErr
}

func validated(name string, v interface{}) error {
	if err := models.Validate(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, name, err)
	}
	return nil
}
