package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const serpAPISearchURL = "https://serpapi.com/search.json"

// ShoppingProduct is one product card from Google Shopping via SerpAPI.
type ShoppingProduct struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Link                string   `json:"link"`
	ThumbnailURL        string   `json:"thumbnailUrl,omitempty"`
	PriceText           string   `json:"priceText,omitempty"`
	Price               *float64 `json:"price,omitempty"`
	Rating              *float64 `json:"rating,omitempty"`
	ReviewCount         *int     `json:"reviewCount,omitempty"`
	Source              string   `json:"source,omitempty"`
	SourceIconURL       string   `json:"sourceIconUrl,omitempty"`
	DescriptionSnippet  string   `json:"descriptionSnippet,omitempty"`
	AdditionalImageURLs []string `json:"additionalImageUrls,omitempty"`
}

type ShoppingConfig struct {
	APIKey   string
	BaseURL  string
	HL       string // defaults to "en"
	GL       string // defaults to "us"
	Location string
	Cache    *Cache
	Logger   *slog.Logger
}

type ShoppingClient struct {
	apiKey   string
	baseURL  string
	hl       string
	gl       string
	location string
	cache    *Cache
	httpc    *http.Client
	logger   *slog.Logger
}

func NewShopping(cfg ShoppingConfig) *ShoppingClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = serpAPISearchURL
	}
	hl := cfg.HL
	if hl == "" {
		hl = "en"
	}
	gl := cfg.GL
	if gl == "" {
		gl = "us"
	}
	return &ShoppingClient{
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		hl:       hl,
		gl:       gl,
		location: cfg.Location,
		cache:    cfg.Cache,
		httpc:    &http.Client{Timeout: 20 * time.Second},
		logger:   cfg.Logger.With("component", "shopping"),
	}
}

type serpShoppingItem struct {
	ProductID      string   `json:"product_id"`
	ProductLink    string   `json:"product_link"`
	Link           string   `json:"link"`
	Title          string   `json:"title"`
	Thumbnail      string   `json:"thumbnail"`
	Price          string   `json:"price"`
	ExtractedPrice *float64 `json:"extracted_price"`
	Rating         *float64 `json:"rating"`
	Reviews        *int     `json:"reviews"`
	Source         string   `json:"source"`
	SourceIcon     string   `json:"source_icon"`
	Snippet        string   `json:"snippet"`
	ImagesResults  []struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"images_results"`
}

type serpShoppingResponse struct {
	ShoppingResults       []serpShoppingItem `json:"shopping_results"`
	InlineShoppingResults []serpShoppingItem `json:"inline_shopping_results"`
}

// Search returns up to maxResults products (default 4). Items without a title
// or link are dropped.
func (c *ShoppingClient) Search(ctx context.Context, query string, maxResults int) []ShoppingProduct {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}
	if c.apiKey == "" {
		c.logger.Warn("missing SerpAPI key, shopping search disabled")
		return nil
	}
	if maxResults <= 0 {
		maxResults = 4
	}

	key := fmt.Sprintf("shop:%s:%d", trimmed, maxResults)
	products, err := CachedJSON(ctx, c.cache, key, 300*time.Second, func(ctx context.Context) ([]ShoppingProduct, error) {
		return c.fetch(ctx, trimmed, maxResults)
	})
	if err != nil {
		c.logger.Warn("shopping search failed", "query", trimmed, "error", err)
		return nil
	}
	return products
}

func (c *ShoppingClient) fetch(ctx context.Context, query string, maxResults int) ([]ShoppingProduct, error) {
	params := url.Values{}
	params.Set("engine", "google_shopping_light")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("hl", c.hl)
	params.Set("gl", c.gl)
	params.Set("device", "desktop")
	if c.location != "" {
		params.Set("location", c.location)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var parsed serpShoppingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	source := parsed.ShoppingResults
	if len(source) == 0 {
		source = parsed.InlineShoppingResults
	}

	products := make([]ShoppingProduct, 0, maxResults)
	for _, item := range source {
		if len(products) >= maxResults {
			break
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = strings.TrimSpace(item.ProductLink)
		}
		if title == "" || link == "" {
			continue
		}

		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			id = truncate(title, 80) + ":" + truncate(link, 80)
		}

		var additional []string
		for _, img := range item.ImagesResults {
			if thumb := strings.TrimSpace(img.Thumbnail); thumb != "" {
				additional = append(additional, thumb)
			}
		}

		products = append(products, ShoppingProduct{
			ID:                  id,
			Title:               title,
			Link:                link,
			ThumbnailURL:        item.Thumbnail,
			PriceText:           item.Price,
			Price:               item.ExtractedPrice,
			Rating:              item.Rating,
			ReviewCount:         item.Reviews,
			Source:              item.Source,
			SourceIconURL:       item.SourceIcon,
			DescriptionSnippet:  strings.TrimSpace(item.Snippet),
			AdditionalImageURLs: additional,
		})
	}
	return products, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
