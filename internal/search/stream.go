package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atomtech/cloudy/internal/providers"
)

// StreamItem is a web result handed back by a client for live summarization.
type StreamItem struct {
	Link         string   `json:"link"`
	Title        string   `json:"title"`
	SummaryLines []string `json:"summaryLines,omitempty"`
	Snippet      string   `json:"snippet,omitempty"`
}

type streamSource struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Link  string `json:"link"`
	Notes string `json:"notes"`
}

// StreamSummary streams a short cited paragraph over the first three items,
// calling emit per chunk. Cancellation of ctx stops upstream consumption at
// the next chunk boundary. Missing query, items or provider keys produce an
// empty stream, not an error.
func (s *Summarizer) StreamSummary(ctx context.Context, query string, items []StreamItem, emit func(chunk string) error) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" || len(items) == 0 {
		return nil
	}
	client, model := s.pickProvider()
	if client == nil {
		return nil
	}

	if len(items) > 3 {
		items = items[:3]
	}
	sources := make([]streamSource, 0, len(items))
	for i, item := range items {
		notes := strings.TrimSpace(strings.Join(compactLines(item.SummaryLines), " "))
		if notes == "" {
			notes = item.Snippet
		}
		sources = append(sources, streamSource{
			Index: i + 1,
			Title: item.Title,
			Link:  item.Link,
			Notes: notes,
		})
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshaling sources: %w", err)
	}

	prompt := fmt.Sprintf(`You are answering the user query: %q. `+
		`Use only the provided sources. Write a short response in 3-4 sentences (one paragraph). `+
		`Cite sources inline by embedding the full URL from the source directly in the sentence. `+
		`Do not use brackets like [1] or numbered citations. `+
		`Do not add headings, bullets, or special characters. `+
		`Sources: %s`, trimmed, payload)

	return client.StreamContent(ctx, providers.GenerateRequest{Model: model, Text: prompt}, emit)
}

func compactLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
