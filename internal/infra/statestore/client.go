// Package statestore provides the client for the remote key-value document
// store holding the account registry and per-account state.
package statestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/infra/resilience"
)

var tracer = otel.Tracer("statestore")

const serviceName = "statestore"

// Client wraps HTTP calls to the store's GET/POST /state endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewClient creates a state store client.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// LoadRegistry fetches and validates the account registry document.
func (c *Client) LoadRegistry(ctx context.Context) (domain.Registry, error) {
	ctx, span := tracer.Start(ctx, "StateStore.LoadRegistry")
	defer span.End()

	var reg domain.Registry
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, c.stateURL(""), nil)
		if err != nil {
			return err
		}
		if err := validate(body, registrySchema, &reg); err != nil {
			return fmt.Errorf("registry reply: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Registry{}, err
	}
	reg.EnsureDefaults()
	return reg, nil
}

// LoadAccount fetches and validates one account's state document.
func (c *Client) LoadAccount(ctx context.Context, accountID string) (domain.AccountState, error) {
	ctx, span := tracer.Start(ctx, "StateStore.LoadAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var state domain.AccountState
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, c.stateURL(accountID), nil)
		if err != nil {
			return err
		}
		if err := validate(body, accountStateSchema, &state); err != nil {
			return fmt.Errorf("account state reply: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.AccountState{}, err
	}
	state.EnsureDefaults()
	return state, nil
}

// SaveRegistry replaces the registry document.
func (c *Client) SaveRegistry(ctx context.Context, reg domain.Registry) error {
	ctx, span := tracer.Start(ctx, "StateStore.SaveRegistry")
	defer span.End()
	span.SetAttributes(attribute.Int("accounts", len(reg.Accounts)))

	return c.execute(ctx, func() error {
		body, err := json.Marshal(reg)
		if err != nil {
			return err
		}
		_, err = c.doRequest(ctx, http.MethodPost, c.stateURL(""), body)
		return err
	})
}

// SaveAccount replaces one account's state document.
func (c *Client) SaveAccount(ctx context.Context, accountID string, state domain.AccountState) error {
	ctx, span := tracer.Start(ctx, "StateStore.SaveAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	return c.execute(ctx, func() error {
		body, err := json.Marshal(state)
		if err != nil {
			return err
		}
		_, err = c.doRequest(ctx, http.MethodPost, c.stateURL(accountID), body)
		return err
	})
}

// execute runs fn behind the circuit breaker and retry policy, translating
// failures into domain errors.
func (c *Client) execute(ctx context.Context, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	if err != nil {
		c.metrics.IncrExternalError(serviceName)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: serviceName}
		}
		return &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	return nil
}

func (c *Client) stateURL(accountID string) string {
	u := c.baseURL + "/state"
	if accountID != "" {
		u += "?account=" + url.QueryEscape(accountID)
	}
	return u
}

func (c *Client) doRequest(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("state store request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("state store non-2xx response",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("state store returned status %d", resp.StatusCode)
	}
	return respBody, nil
}

// validate checks body against schema, then decodes it into out. An empty
// body passes as an empty document (the store replies {} for unknown keys,
// but some deployments send nothing at all).
func validate(body []byte, schema *jsonschema.Schema, out any) error {
	if len(body) == 0 {
		return nil
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return json.Unmarshal(body, out)
}
