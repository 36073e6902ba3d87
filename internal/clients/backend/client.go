// Package backend provides a client for the holdings backend API
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

const (
	DefaultBaseURL    = "http://localhost:3000/api"
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 5 // requests per second
	DefaultMaxRetries = 3
)

// Client implements the HoldingsClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	maxRetries int
	backoff    func() backoff.BackOff
}

var _ interfaces.HoldingsClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets how many times a retryable failure is retried
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackOff overrides the retry schedule (tests use a zero backoff)
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) {
		c.backoff = newBackOff
	}
}

// NewClient creates a new holdings backend client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
		maxRetries: DefaultMaxRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig creates a client from the [clients.backend] section
func NewClientFromConfig(cfg common.BackendConfig, logger *common.Logger) *Client {
	return NewClient(cfg.APIKey,
		WithBaseURL(cfg.BaseURL),
		WithLogger(logger),
		WithRateLimit(cfg.RateLimit),
		WithTimeout(cfg.GetTimeout()),
		WithMaxRetries(cfg.MaxRetries),
	)
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Retryable reports whether the request may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// get performs a rate-limited GET request, retrying transport errors, 429 and 5xx.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		err := c.do(ctx, path, result)
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		c.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt).Msg("Backend request failed, retrying")
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), uint64(c.maxRetries)), ctx)
	return backoff.Retry(operation, policy)
}

func (c *Client) do(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", path).Msg("Backend API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

type portfoliosResponse struct {
	Data []struct {
		Name string `json:"name"`
	} `json:"data"`
}

// ListPortfolios retrieves the names of all portfolios
func (c *Client) ListPortfolios(ctx context.Context) ([]string, error) {
	var resp portfoliosResponse
	if err := c.get(ctx, "/v1/portfolios", &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

type holdingsResponse struct {
	Data struct {
		Name     string           `json:"name"`
		Currency string           `json:"currency"`
		Holdings []models.Holding `json:"holdings"`
	} `json:"data"`
}

// GetHoldings retrieves the holdings of a portfolio
func (c *Client) GetHoldings(ctx context.Context, portfolio string) (*models.Portfolio, error) {
	var resp holdingsResponse
	path := fmt.Sprintf("/v1/portfolios/%s/holdings", url.PathEscape(portfolio))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	name := resp.Data.Name
	if name == "" {
		name = portfolio
	}
	holdings := resp.Data.Holdings
	if holdings == nil {
		holdings = []models.Holding{}
	}

	c.logger.Debug().Str("portfolio", name).Int("holdings", len(holdings)).Msg("Fetched holdings")

	return &models.Portfolio{
		Name:      name,
		Currency:  resp.Data.Currency,
		Holdings:  holdings,
		FetchedAt: time.Now().UTC(),
	}, nil
}
