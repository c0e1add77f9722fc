package memory

import (
	"bytes"
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

const (
	mem0DefaultBaseURL = "https://api.mem0.ai"
	mem0AgentID        = "cloudy-web"
	maxMemoryLines     = 50
)

type Mem0Config struct {
	APIKey  string
	BaseURL string
	Logger  *slog.Logger
}

// Mem0Store talks to a mem0-style memory API. Every failure is swallowed into
// an empty result: memory is an enhancement, never a dependency of the
// request path.
type Mem0Store struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

func NewMem0(cfg Mem0Config) *Mem0Store {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = mem0DefaultBaseURL
	}
	return &Mem0Store{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		logger:  cfg.Logger.With("component", "mem0"),
	}
}

// Ready reports whether an API key is configured.
func (s *Mem0Store) Ready() bool { return s.apiKey != "" }

type mem0Entry struct {
	Memory string `json:"memory"`
}

type mem0SearchResponse struct {
	Results []mem0Entry `json:"results"`
}

// Search runs a targeted search first so the most relevant memories lead,
// then appends the user's full memory dump, deduplicated and capped at
// maxMemoryLines. Lines carry the "Memory: " prefix the intent prompt keys on.
func (s *Mem0Store) Search(ctx context.Context, query string, ids IDs) ([]string, error) {
	if !s.Ready() || ids.UserID == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}

	searchLines := s.search(ctx, trimmed, ids, true)
	if len(searchLines) == 0 {
		searchLines = s.search(ctx, trimmed, ids, false)
	}
	allLines := s.getAll(ctx, ids)

	seen := make(map[string]bool)
	var lines []string
	for _, line := range append(searchLines, allLines...) {
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
		if len(lines) >= maxMemoryLines {
			break
		}
	}
	return lines, nil
}

func (s *Mem0Store) search(ctx context.Context, query string, ids IDs, withAgent bool) []string {
	filters := map[string]any{"user_id": ids.UserID}
	if withAgent {
		filters["agent_id"] = mem0AgentID
	}
	body := map[string]any{
		"query":   query,
		"user_id": ids.UserID,
		"filters": filters,
		"top_k":   10,
	}

	var resp mem0SearchResponse
	if err := s.post(ctx, "/v1/memories/search/", body, &resp); err != nil {
		s.logger.Warn("memory search failed", "error", err)
		return nil
	}
	return memoryLines(resp.Results)
}

func (s *Mem0Store) getAll(ctx context.Context, ids IDs) []string {
	u := s.baseURL + "/v1/memories/?user_id=" + url.QueryEscape(ids.UserID)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Token "+s.apiKey)

	resp, err := s.httpc.Do(req)
	if err != nil {
		s.logger.Warn("memory dump failed", "error", err)
		return nil
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		s.logger.Warn("memory dump failed", "status", resp.StatusCode)
		return nil
	}

	// The endpoint returns either a bare array or {results: [...]}.
	var entries []mem0Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped mem0SearchResponse
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		entries = wrapped.Results
	}
	return memoryLines(entries)
}

// Add persists messages under the user (and session when known).
func (s *Mem0Store) Add(ctx context.Context, msgs []Message, ids IDs, metadata map[string]any) error {
	if !s.Ready() || ids.UserID == "" || len(msgs) == 0 {
		return nil
	}

	body := map[string]any{
		"messages": msgs,
		"user_id":  ids.UserID,
		"agent_id": mem0AgentID,
	}
	if ids.SessionID != "" {
		body["run_id"] = ids.SessionID
	}
	if metadata != nil {
		body["metadata"] = metadata
	}

	if err := s.post(ctx, "/v1/memories/", body, nil); err != nil {
		s.logger.Warn("memory add failed", "error", err)
		return err
	}
	return nil
}

func (s *Mem0Store) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+s.apiKey)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("mem0 request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mem0 status %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

func memoryLines(entries []mem0Entry) []string {
	var lines []string
	for _, e := range entries {
		text := strings.TrimSpace(e.Memory)
		if text == "" {
			continue
		}
		lines = append(lines, "Memory: "+text)
	}
	return lines
}
