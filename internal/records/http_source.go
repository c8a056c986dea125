package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// maxRemoteBody caps how much of a remote export is read.
const maxRemoteBody = 64 << 20

// HTTPConfig configures a remote JSON export source.
type HTTPConfig struct {
	Name      string
	URL       string
	Timeout   time.Duration
	RateLimit float64 // requests per second
}

// HTTPSource reads a master JSON document from a remote URL, such as a blob export.
// A 404 is treated as an absent collection.
type HTTPSource struct {
	name       string
	url        string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// NewHTTPSource creates a new remote source
func NewHTTPSource(config HTTPConfig) *HTTPSource {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}
	if config.Name == "" {
		config.Name = "http"
	}

	return &HTTPSource{
		name: config.Name,
		url:  config.URL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Name implements Source.
func (s *HTTPSource) Name() string {
	return s.name
}

// Read implements Source.
func (s *HTTPSource) Read(ctx context.Context) ([]json.RawMessage, error) {
	if err := s.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, s.name)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	docs, err := SplitDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parsing response from %s: %w", s.name, err)
	}
	return docs, nil
}
