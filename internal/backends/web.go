package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const customSearchURL = "https://www.googleapis.com/customsearch/v1"

// WebItem is one Google Custom Search result.
type WebItem struct {
	Link     string `json:"link"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ImageItem is one image search result.
type ImageItem struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

type WebConfig struct {
	APIKey  string
	CX      string
	BaseURL string // defaults to the Google Custom Search endpoint
	Cache   *Cache
	Logger  *slog.Logger
}

// WebClient runs Google Custom Search web and image queries. Missing
// credentials and upstream failures degrade to empty results; the search
// surface never errors out of a user request.
type WebClient struct {
	apiKey  string
	cx      string
	baseURL string
	cache   *Cache
	httpc   *http.Client
	logger  *slog.Logger
}

func NewWeb(cfg WebConfig) *WebClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = customSearchURL
	}
	return &WebClient{
		apiKey:  cfg.APIKey,
		cx:      cfg.CX,
		baseURL: baseURL,
		cache:   cfg.Cache,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  cfg.Logger.With("component", "web_search"),
	}
}

type cseResponse struct {
	Items []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Pagemap struct {
			CSEImage []struct {
				Src string `json:"src"`
			} `json:"cse_image"`
			CSEThumbnail []struct {
				Src string `json:"src"`
			} `json:"cse_thumbnail"`
		} `json:"pagemap"`
	} `json:"items"`
}

func clampNum(n, def int) int {
	if n == 0 {
		n = def
	}
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// Search returns up to num web results (clamped to 1..10, default 10).
func (c *WebClient) Search(ctx context.Context, query string, num int) []WebItem {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}
	if c.apiKey == "" || c.cx == "" {
		c.logger.Error("missing Google API key or CX, web search disabled")
		return nil
	}

	num = clampNum(num, 10)
	key := fmt.Sprintf("web:%s:%d", trimmed, num)
	items, err := CachedJSON(ctx, c.cache, key, 120*time.Second, func(ctx context.Context) ([]WebItem, error) {
		return c.fetchWeb(ctx, trimmed, num)
	})
	if err != nil {
		c.logger.Error("web search failed", "query", trimmed, "error", err)
		return nil
	}
	return items
}

func (c *WebClient) fetchWeb(ctx context.Context, query string, num int) ([]WebItem, error) {
	parsed, err := c.doSearch(ctx, query, num, false)
	if err != nil {
		return nil, err
	}

	items := make([]WebItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if len(items) >= num {
			break
		}
		imageURL := ""
		if len(item.Pagemap.CSEImage) > 0 {
			imageURL = item.Pagemap.CSEImage[0].Src
		} else if len(item.Pagemap.CSEThumbnail) > 0 {
			imageURL = item.Pagemap.CSEThumbnail[0].Src
		}
		items = append(items, WebItem{
			Link:     item.Link,
			Title:    item.Title,
			Snippet:  item.Snippet,
			ImageURL: imageURL,
		})
	}
	return items, nil
}

// SearchImages returns up to num image results (clamped to 1..10, default 10).
func (c *WebClient) SearchImages(ctx context.Context, query string, num int) []ImageItem {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}
	if c.apiKey == "" || c.cx == "" {
		c.logger.Error("missing Google API key or CX, image search disabled")
		return nil
	}

	num = clampNum(num, 10)
	key := fmt.Sprintf("img:%s:%d", trimmed, num)
	items, err := CachedJSON(ctx, c.cache, key, 120*time.Second, func(ctx context.Context) ([]ImageItem, error) {
		parsed, err := c.doSearch(ctx, trimmed, num, true)
		if err != nil {
			return nil, err
		}
		images := make([]ImageItem, 0, len(parsed.Items))
		for _, item := range parsed.Items {
			if len(images) >= num {
				break
			}
			images = append(images, ImageItem{Src: item.Link, Alt: item.Title})
		}
		return images, nil
	})
	if err != nil {
		c.logger.Error("image search failed", "query", trimmed, "error", err)
		return nil
	}
	return items
}

func (c *WebClient) doSearch(ctx context.Context, query string, num int, images bool) (*cseResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	if images {
		params.Set("searchType", "image")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("custom search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("custom search status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var parsed cseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &parsed, nil
}
