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

const youtubeSearchURL = "https://www.googleapis.com/youtube/v3/search"

// YouTubeVideo is one video search result. Entries without a video id are
// dropped upstream.
type YouTubeVideo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
}

type YouTubeConfig struct {
	APIKey  string
	BaseURL string
	Cache   *Cache
	Logger  *slog.Logger
}

type YouTubeClient struct {
	apiKey  string
	baseURL string
	cache   *Cache
	httpc   *http.Client
	logger  *slog.Logger
}

func NewYouTube(cfg YouTubeConfig) *YouTubeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = youtubeSearchURL
	}
	return &YouTubeClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		cache:   cfg.Cache,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  cfg.Logger.With("component", "youtube_search"),
	}
}

type youtubeResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   struct {
				High    struct{ URL string `json:"url"` } `json:"high"`
				Medium  struct{ URL string `json:"url"` } `json:"medium"`
				Default struct{ URL string `json:"url"` } `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search returns up to maxResults videos (clamped to 1..10, default 5).
func (c *YouTubeClient) Search(ctx context.Context, query string, maxResults int) []YouTubeVideo {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}
	if c.apiKey == "" {
		c.logger.Error("missing YouTube API key, video search disabled")
		return nil
	}

	maxResults = clampNum(maxResults, 5)
	key := fmt.Sprintf("yt:%s:%d", trimmed, maxResults)
	videos, err := CachedJSON(ctx, c.cache, key, 300*time.Second, func(ctx context.Context) ([]YouTubeVideo, error) {
		return c.fetch(ctx, trimmed, maxResults)
	})
	if err != nil {
		c.logger.Error("youtube search failed", "query", trimmed, "error", err)
		return nil
	}
	return videos
}

func (c *YouTubeClient) fetch(ctx context.Context, query string, maxResults int) ([]YouTubeVideo, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("part", "snippet")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("type", "video")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var parsed youtubeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	videos := make([]YouTubeVideo, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID == "" {
			continue
		}
		thumb := item.Snippet.Thumbnails.High.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Medium.URL
		}
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		videos = append(videos, YouTubeVideo{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			Thumbnail:    thumb,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return videos, nil
}
