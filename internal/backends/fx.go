package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const exchangeRateURL = "https://api.exchangerate.host"

type FXConfig struct {
	BaseURL string
	Cache   *Cache
	Logger  *slog.Logger
}

// FXClient reads spot rates from exchangerate.host. The endpoint is keyless.
type FXClient struct {
	baseURL string
	cache   *Cache
	httpc   *http.Client
	logger  *slog.Logger
}

func NewFX(cfg FXConfig) *FXClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = exchangeRateURL
	}
	return &FXClient{
		baseURL: baseURL,
		cache:   cfg.Cache,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		logger:  cfg.Logger.With("component", "fx"),
	}
}

type fxResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate resolves base/symbol. ok is false when the service responded but had
// no rate for the pair. The signature matches intent.RateFunc.
func (c *FXClient) Rate(ctx context.Context, base, symbol string) (float64, bool, error) {
	key := "fx:" + base + ":" + symbol
	rates, err := CachedJSON(ctx, c.cache, key, 3600*time.Second, func(ctx context.Context) (map[string]float64, error) {
		u := fmt.Sprintf("%s/latest?base=%s&symbols=%s", c.baseURL, base, symbol)
		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("FX request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("FX API returned %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		var parsed fxResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		return parsed.Rates, nil
	})
	if err != nil {
		return 0, false, err
	}

	rate, ok := rates[symbol]
	return rate, ok, nil
}
