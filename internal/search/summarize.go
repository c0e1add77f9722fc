package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atomtech/cloudy/internal/backends"
	"github.com/atomtech/cloudy/internal/providers"
)

// ItemSummary carries per-result summary lines keyed by the zero-based index
// into the original results slice.
type ItemSummary struct {
	Index        int      `json:"index"`
	SummaryLines []string `json:"summary_lines"`
}

type SummarizerConfig struct {
	Gemini      providers.Client
	Groq        providers.Client
	Preference  string
	GeminiModel string
	GroqModel   string
	Logger      *slog.Logger
}

// Summarizer condenses raw web results into short user-facing lines through
// a strict-JSON model pass.
type Summarizer struct {
	gemini      providers.Client
	groq        providers.Client
	preference  string
	geminiModel string
	groqModel   string
	logger      *slog.Logger
}

func NewSummarizer(cfg SummarizerConfig) *Summarizer {
	return &Summarizer{
		gemini:      cfg.Gemini,
		groq:        cfg.Groq,
		preference:  strings.ToLower(cfg.Preference),
		geminiModel: cfg.GeminiModel,
		groqModel:   cfg.GroqModel,
		logger:      cfg.Logger.With("component", "summarizer"),
	}
}

func (s *Summarizer) pickProvider() (providers.Client, string) {
	groqReady := s.groq != nil && s.groq.Ready()
	geminiReady := s.gemini != nil && s.gemini.Ready()
	switch {
	case s.preference == "groq" && groqReady:
		return s.groq, s.groqModel
	case geminiReady:
		return s.gemini, s.geminiModel
	case groqReady:
		return s.groq, s.groqModel
	default:
		return nil, ""
	}
}

// SummarizeItems asks the model for at most two overall lines and up to three
// lines per result, over the first ten items. Any failure, including
// unparseable model output, degrades to empty summaries.
func (s *Summarizer) SummarizeItems(ctx context.Context, items []backends.WebItem, query string) ([]string, []ItemSummary) {
	if len(items) == 0 {
		return nil, nil
	}
	client, model := s.pickProvider()
	if client == nil {
		return nil, nil
	}

	if len(items) > 10 {
		items = items[:10]
	}
	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		trimmedQuery = "N/A"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, nil
	}

	prompt := fmt.Sprintf(`You are answering the user query: %q using web search results. `+
		`Return strictly valid compact JSON with keys overall_summary_lines and items. `+
		`overall_summary_lines must be an array of at most two very short plain-text lines `+
		`that directly answer the user's query using only the information implied by the results. `+
		`Write the answer as if you are responding directly to the user, not describing "results" in general. `+
		`When possible, briefly mention which result supports the answer, such as a site name or article title. `+
		`items must be an array of objects {index, summary_lines}, where index is the zero-based `+
		`index into the original results array, and summary_lines is an array of up to three very short `+
		`plain-text lines summarizing that specific result. `+
		`Use this data: %s`, trimmedQuery, data)

	resp, err := client.GenerateContent(ctx, providers.GenerateRequest{Model: model, Text: prompt})
	if err != nil {
		s.logger.Warn("summarization failed", "provider", client.Name(), "error", err)
		return nil, nil
	}

	var parsed struct {
		OverallSummaryLines []string      `json:"overall_summary_lines"`
		Items               []ItemSummary `json:"items"`
	}
	extracted := extractJSON(resp.Text)
	if extracted == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		s.logger.Warn("summarization output not JSON", "provider", client.Name())
		return nil, nil
	}

	overall := parsed.OverallSummaryLines
	if len(overall) > 2 {
		overall = overall[:2]
	}
	return overall, parsed.Items
}

// extractJSON cuts the first '{' through last '}' span, tolerating prose or
// code fences around the object.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first < 0 || last <= first {
		return ""
	}
	return s[first : last+1]
}
