package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/atomtech/cloudy/internal/providers"
)

const (
	maxFactsPerWindow = 10
	maxFactLen        = 200
	maxSummaryLen     = 400
	maxTurnTextLen    = 500
)

// WindowSearch is the search block attached to a turn, when that turn was a
// tabbed search rather than plain chat.
type WindowSearch struct {
	SearchQuery    string   `json:"searchQuery,omitempty"`
	OverallSummary []string `json:"overallSummary,omitempty"`
}

// WindowTurn is one turn in a conversation window handed to extraction.
type WindowTurn struct {
	Role   string        `json:"role"` // "user" or "assistant"
	Type   string        `json:"type"` // "text" or "search"
	Text   string        `json:"text"`
	Search *WindowSearch `json:"search,omitempty"`
}

// Extraction is the distilled memory of one window.
type Extraction struct {
	WindowKey           string   `json:"windowKey"`
	PermanentFacts      []string `json:"permanentFacts"`
	ConversationSummary string   `json:"conversationSummary"`
}

// WindowKey derives a stable identity for a window from its semantic content:
// role, type, text and search query. Timestamps, summaries and any other
// presentation data are excluded so re-rendering the same conversation yields
// the same key.
func WindowKey(turns []WindowTurn) string {
	type keyTurn struct {
		Role        string `json:"role"`
		Type        string `json:"type"`
		Text        string `json:"text"`
		SearchQuery string `json:"searchQuery,omitempty"`
	}
	canonical := make([]keyTurn, 0, len(turns))
	for _, t := range turns {
		kt := keyTurn{Role: t.Role, Type: t.Type, Text: t.Text}
		if t.Search != nil {
			kt.SearchQuery = t.Search.SearchQuery
		}
		canonical = append(canonical, kt)
	}
	encoded, _ := json.Marshal(canonical)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// Extractor distills permanent facts and a conversation summary from a
// window using a fast tool-free model pass.
type Extractor struct {
	provider providers.Client
	model    string
	store    Store
	logger   *slog.Logger
}

func NewExtractor(provider providers.Client, model string, store Store, logger *slog.Logger) *Extractor {
	return &Extractor{
		provider: provider,
		model:    model,
		store:    store,
		logger:   logger.With("component", "memory_extractor"),
	}
}

const extractSystemPrompt = `You extract memory from a short conversation window. Return only strict JSON with keys "permanent_facts" (array of short strings) and "conversation_summary" (short string). Only include facts explicitly stated by the user. If nothing is suitable, return empty array and empty string.`

// ExtractFromWindow runs the extraction model over the window's turns and,
// when a user id is known, persists the facts tagged as permanent memory.
// Missing keys or an unusable model answer degrade to an empty extraction.
func (e *Extractor) ExtractFromWindow(ctx context.Context, windowKey string, turns []WindowTurn, ids IDs) Extraction {
	result := Extraction{WindowKey: windowKey, PermanentFacts: []string{}}
	if windowKey == "" || len(turns) == 0 {
		return result
	}
	if e.provider == nil || !e.provider.Ready() {
		return result
	}

	payload, err := json.Marshal(map[string]any{"turns": compactTurns(turns)})
	if err != nil {
		return result
	}

	resp, err := e.provider.GenerateContent(ctx, providers.GenerateRequest{
		Model:  e.model,
		Text:   "ConversationWindow: " + string(payload),
		System: []string{extractSystemPrompt},
	})
	if err != nil {
		e.logger.Warn("memory extraction failed", "window_key", windowKey, "error", err)
		return result
	}

	parsed := extractJSONObject(resp.Text)
	result.PermanentFacts = normalizeFacts(firstOf(parsed, "permanent_facts", "permanentFacts"))
	result.ConversationSummary = normalizeSummary(firstOf(parsed, "conversation_summary", "conversationSummary"))

	if ids.UserID != "" && len(result.PermanentFacts) > 0 && e.store != nil {
		msgs := make([]Message, 0, len(result.PermanentFacts))
		for _, fact := range result.PermanentFacts {
			msgs = append(msgs, Message{Role: "user", Content: fact})
		}
		metadata := map[string]any{
			"category":   "permanent_memory",
			"source":     e.provider.Name(),
			"window_key": windowKey,
		}
		if err := e.store.Add(ctx, msgs, ids, metadata); err != nil {
			e.logger.Warn("persisting facts failed", "window_key", windowKey, "error", err)
		}
	}
	return result
}

// compactTurns caps the window fields so one oversized turn cannot blow the
// extraction prompt.
func compactTurns(turns []WindowTurn) []WindowTurn {
	out := make([]WindowTurn, 0, len(turns))
	for _, t := range turns {
		ct := WindowTurn{Role: t.Role, Type: t.Type, Text: truncate(t.Text, maxTurnTextLen)}
		if t.Search != nil {
			cs := &WindowSearch{SearchQuery: truncate(t.Search.SearchQuery, 200)}
			for _, line := range t.Search.OverallSummary {
				line = truncate(line, 200)
				if line == "" {
					continue
				}
				cs.OverallSummary = append(cs.OverallSummary, line)
				if len(cs.OverallSummary) == 3 {
					break
				}
			}
			ct.Search = cs
		}
		out = append(out, ct)
	}
	return out
}

// extractJSONObject pulls the first balanced-looking JSON object out of model
// text that may be wrapped in prose or code fences.
func extractJSONObject(raw string) map[string]any {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		text = text[first : last+1]
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil
	}
	return parsed
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func normalizeFacts(value any) []string {
	arr, ok := value.([]any)
	if !ok {
		return []string{}
	}
	seen := make(map[string]bool)
	facts := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = truncate(strings.TrimSpace(s), maxFactLen)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		facts = append(facts, s)
		if len(facts) == maxFactsPerWindow {
			break
		}
	}
	return facts
}

func normalizeSummary(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return truncate(strings.TrimSpace(s), maxSummaryLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
