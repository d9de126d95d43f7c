package frankfurter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/langowen/ratesconverter/internal/entities"
	"github.com/langowen/ratesconverter/internal/metrics"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*entities.UpstreamResponse, error)
}

// HTTPClient issues single GET attempts against the provider.
type HTTPClient struct {
	client  *http.Client
	metrics *metrics.Metrics
}

func NewHTTPClient(timeout time.Duration, m *metrics.Metrics) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// Fetch returns any HTTP response, whatever its status. An error means
// no complete response was received.
func (c *HTTPClient) Fetch(ctx context.Context, url string) (*entities.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.UpstreamAttempt(0)
		return nil, fmt.Errorf("api_client get error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.UpstreamAttempt(0)
		return nil, fmt.Errorf("read body error: %w", err)
	}

	c.metrics.UpstreamAttempt(resp.StatusCode)
	slog.Debug("upstream response",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	return &entities.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
