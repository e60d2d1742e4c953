package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/domain/entity"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co/query"
	dateLayout     = "2006-01-02"
	maxBodyPreview = 200
)

// ErrThrottled is returned when the API answers with a rate limit notice.
var ErrThrottled = errors.New("alpha vantage request limit reached")

var _ port.MarketDataProvider = (*Client)(nil)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fetches daily time series from Alpha Vantage.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("alpha vantage api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return newClient(cfg, &http.Client{Timeout: timeout}), nil
}

func newClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
	}
}

// DailyCloses returns the full daily close history for symbol, oldest first.
func (c *Client) DailyCloses(ctx context.Context, symbol string) ([]entity.PricePoint, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	requestURL, err := c.buildURL(symbol)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response for %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage error [status=%d]: %s", resp.StatusCode, truncate(string(body), maxBodyPreview))
	}

	var payload dailyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", symbol, err)
	}

	switch {
	case payload.ErrorMessage != "":
		return nil, fmt.Errorf("alpha vantage error for %s: %s", symbol, payload.ErrorMessage)
	case payload.Note != "":
		return nil, fmt.Errorf("%w: %s", ErrThrottled, payload.Note)
	case len(payload.TimeSeries) == 0 && payload.Information != "":
		return nil, fmt.Errorf("%w: %s", ErrThrottled, payload.Information)
	}

	points := make([]entity.PricePoint, 0, len(payload.TimeSeries))
	for rawDate, bar := range payload.TimeSeries {
		date, err := time.Parse(dateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q for %s: %w", rawDate, symbol, err)
		}
		closePrice, err := strconv.ParseFloat(strings.TrimSpace(bar.Close), 64)
		if err != nil || math.IsNaN(closePrice) || math.IsInf(closePrice, 0) {
			return nil, fmt.Errorf("invalid close %q on %s for %s", bar.Close, rawDate, symbol)
		}
		points = append(points, entity.PricePoint{Date: date, Close: closePrice})
	}

	return entity.NewPriceSeries(symbol, points).Points, nil
}

func (c *Client) buildURL(symbol string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid alpha vantage base url: %w", err)
	}

	query := base.Query()
	query.Set("function", "TIME_SERIES_DAILY")
	query.Set("symbol", symbol)
	query.Set("outputsize", "full")
	query.Set("datatype", "json")
	query.Set("apikey", c.apiKey)
	base.RawQuery = query.Encode()

	return base.String(), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
