package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var errRateMissing = errors.New("conversion rate missing in response")

// FrankfurterClient is a client for the frankfurter.app exchange rates API.
type FrankfurterClient struct {
	baseURL    string
	httpClient *http.Client
}

type frankfurterResponse struct {
	Base  string                 `json:"base"`
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

// NewFrankfurterClient creates a Frankfurter API client with a traced transport.
func NewFrankfurterClient(baseURL string, timeout time.Duration) *FrankfurterClient {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = "https://api.frankfurter.app"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &FrankfurterClient{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Convert converts amount using the latest published rate.
func (c *FrankfurterClient) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (ConversionResult, error) {
	return convert(ctx, c, amount, from, to)
}

// Rate fetches the latest rate for from->to.
func (c *FrankfurterClient) Rate(ctx context.Context, from, to string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/latest?from=%s&to=%s", c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to create conversion request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to request conversion rate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("exchange API returned status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var payload frankfurterResponse
	if err := decoder.Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("failed to decode conversion response: %w", err)
	}

	raw, ok := payload.Rates[to]
	if !ok {
		return Quote{}, errRateMissing
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return Quote{}, fmt.Errorf("failed to parse conversion rate: %w", err)
	}

	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to parse conversion date: %w", err)
	}

	return Quote{Rate: rate, Date: date}, nil
}
