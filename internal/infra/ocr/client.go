// Package ocr provides the client for the remote screenshot recogniser.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/infra/resilience"
)

var tracer = otel.Tracer("ocr")

const serviceName = "ocr"

// Client wraps HTTP calls to the recogniser's POST /ocr endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OCR client.
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

// scanReply is the recogniser's response envelope. Values arrive keyed by the
// on-screen label; labels the recogniser missed are absent.
type scanReply struct {
	Values domain.ScanValues `json:"values"`
}

// Scan submits an image for recognition scoped to one account.
func (c *Client) Scan(ctx context.Context, accountID, filename string, image []byte) (domain.ScanValues, error) {
	ctx, span := tracer.Start(ctx, "OCR.Scan")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.Int("image.bytes", len(image)),
	)

	var reply scanReply
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return c.doScan(ctx, accountID, filename, image, &reply)
		})
	})
	if err != nil {
		c.metrics.IncrExternalError(serviceName)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: serviceName}
		}
		return nil, &domain.ErrExternalService{Service: serviceName, Err: err}
	}

	if reply.Values == nil {
		reply.Values = domain.ScanValues{}
	}
	return reply.Values, nil
}

func (c *Client) doScan(ctx context.Context, accountID, filename string, image []byte, reply *scanReply) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/ocr?account=%s", c.baseURL, url.QueryEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("ocr request failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ocr non-200 response",
			zap.String("account_id", accountID),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("ocr service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(reply)
}
