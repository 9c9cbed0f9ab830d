package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	internal "github.com/hanifm/expense-approval/internal"
)

// Client fetches exchange rates from an exchangerate-api style endpoint:
// GET {base_url}/latest/{FROM} returns {"rates": {"USD": 1.08, ...}}.
// Rates are cached per base currency for a short window so expense bursts
// do not hammer the provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger

	mu       sync.Mutex
	cache    map[string]cachedRates
	cacheTTL time.Duration
}

type cachedRates struct {
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		cache:      make(map[string]cachedRates),
		cacheTTL:   time.Hour,
	}
}

// Rate returns how many units of to one unit of from is worth.
func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to {
		return decimal.NewFromInt(1), nil
	}

	rates, err := c.ratesFor(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := rates[to]
	if !ok {
		return decimal.Zero, internal.NewExternalError(
			fmt.Sprintf("no rate from %s to %s", from, to),
			internal.ErrCodeRateLookupFailed, nil)
	}
	return rate, nil
}

func (c *Client) ratesFor(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	c.mu.Lock()
	if cached, ok := c.cache[base]; ok && time.Since(cached.fetchedAt) < c.cacheTTL {
		c.mu.Unlock()
		return cached.rates, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/latest/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, internal.NewExternalError("failed to build rate request", internal.ErrCodeRateLookupFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, internal.NewExternalError("rate provider unreachable", internal.ErrCodeRateLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, internal.NewExternalError(
			fmt.Sprintf("rate provider returned status %d", resp.StatusCode),
			internal.ErrCodeRateLookupFailed, nil)
	}

	var parsed ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, internal.NewExternalError("failed to decode rate response", internal.ErrCodeRateLookupFailed, err)
	}
	if len(parsed.Rates) == 0 {
		return nil, internal.NewExternalError("rate response has no rates", internal.ErrCodeRateLookupFailed, nil)
	}

	c.mu.Lock()
	c.cache[base] = cachedRates{rates: parsed.Rates, fetchedAt: time.Now()}
	c.mu.Unlock()

	c.logger.Debug("exchange rates refreshed", "base", base, "currencies", len(parsed.Rates))
	return parsed.Rates, nil
}
