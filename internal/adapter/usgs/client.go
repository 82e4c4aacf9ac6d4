package usgs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// ErrUpstreamStatus matches any non-200 response from the event service.
var ErrUpstreamStatus = errors.New("upstream returned non-200 status")

// maxErrorBody caps how much of an error response is kept in the error message.
const maxErrorBody = 512

// StatusError reports a non-200 response from the event service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("usgs API error: status %d: %s", e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrUpstreamStatus) hold for every StatusError.
func (e *StatusError) Is(target error) bool { return target == ErrUpstreamStatus }

// Client fetches event exports from the USGS FDSN event service.
type Client struct {
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS client with the given per-request timeout.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch issues the single GET for a run and returns the full response body.
// The USGS service answers 204 No Content when nothing matches; that is
// reported as an empty body, not an error.
func (c *Client) Fetch(ctx context.Context, req domain.SourceRequest) ([]byte, error) {
	u, err := req.URL()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/csv")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.SourceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("usgs request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		c.logger.Debug("usgs returned no content", "window", req.Window.String())
		return nil, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read usgs response: %w", err)
	}
	c.logger.Debug("usgs response received", "window", req.Window.String(), "bytes", len(body))
	return body, nil
}
