package marketdata

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

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/folio-service/folio_service/pkg/circuitbreaker"
	"github.com/folio-service/folio_service/pkg/retry"
)

const (
	defaultTimeout = 15 * time.Second

	// Conservative default for free-tier EOD quote providers.
	defaultRateLimitRPS = 5
	rateLimitBurst      = 5
)

// Config represents the EOD quote provider configuration
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	RateLimitRPS int
}

// Client fetches end-of-day close prices from the external quote provider.
// Calls go through a circuit breaker so a provider outage degrades to
// cache-only reads instead of queueing timeouts.
type Client struct {
	config     Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new quote provider client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimitRPS == 0 {
		config.RateLimitRPS = defaultRateLimitRPS
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    circuitbreaker.New("marketdata", circuitbreaker.DefaultConfig(), logger),
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimitRPS), rateLimitBurst),
		logger:     logger,
	}
}

// statusError marks a non-200 provider response so the retry predicate can
// distinguish transient upstream failures from client mistakes.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("quote provider returned status %d", e.code)
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
	}
	return retry.IsTemporaryError(err)
}

type quoteResponse struct {
	Quotes []struct {
		Symbol string          `json:"symbol"`
		Close  decimal.Decimal `json:"close"`
	} `json:"quotes"`
}

// GetDailyCloses returns the close price per ticker for one trading day.
// Tickers the provider has no data for are absent from the result.
func (c *Client) GetDailyCloses(ctx context.Context, tickers []string, day time.Time) (map[string]decimal.Decimal, error) {
	if len(tickers) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var closes map[string]decimal.Decimal
		err := retry.Do(ctx, retry.DefaultConfig(), func() error {
			var fetchErr error
			closes, fetchErr = c.fetchCloses(ctx, tickers, day)
			return fetchErr
		}, isRetryable)
		return closes, err
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]decimal.Decimal), nil
}

func (c *Client) fetchCloses(ctx context.Context, tickers []string, day time.Time) (map[string]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v1/eod", strings.TrimRight(c.config.BaseURL, "/"))

	params := url.Values{}
	params.Set("symbols", strings.Join(tickers, ","))
	params.Set("date", day.UTC().Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("quote provider returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.Int("tickers", len(tickers)),
		)
		return nil, &statusError{code: resp.StatusCode}
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	closes := make(map[string]decimal.Decimal, len(parsed.Quotes))
	for _, q := range parsed.Quotes {
		closes[strings.ToUpper(q.Symbol)] = q.Close
	}
	return closes, nil
}
