package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/atomtech/cloudy/internal/backends"
	"github.com/atomtech/cloudy/internal/intent"
	"github.com/atomtech/cloudy/internal/memory"
)

// WebResult is one web item enriched with model summary lines. SummaryLines
// always has exactly three entries, padded with empty strings.
type WebResult struct {
	Link         string   `json:"link"`
	Title        string   `json:"title"`
	SummaryLines []string `json:"summaryLines"`
	ImageURL     string   `json:"imageUrl,omitempty"`
}

// Bundle is the full multi-source payload behind a tabbed search response.
type Bundle struct {
	SearchQuery         string                     `json:"searchQuery"`
	OverallSummaryLines []string                   `json:"overallSummaryLines"`
	WebItems            []WebResult                `json:"webItems"`
	MediaItems          []backends.ImageItem       `json:"mediaItems"`
	WeatherItems        []backends.WeatherItem     `json:"weatherItems"`
	YouTubeItems        []backends.YouTubeVideo    `json:"youtubeItems,omitempty"`
	ShoppingItems       []backends.ShoppingProduct `json:"shoppingItems,omitempty"`
	ShouldShowTabs      bool                       `json:"shouldShowTabs"`
	MapLocation         string                     `json:"mapLocation,omitempty"`
	GoogleMapsKey       string                     `json:"googleMapsKey,omitempty"`
}

// Result is either a plain text answer or a tabbed search bundle.
type Result struct {
	Type    string  `json:"type"` // "text" or "search"
	Content string  `json:"content,omitempty"`
	Data    *Bundle `json:"data,omitempty"`
}

type Options struct {
	Context   []string
	UserID    string
	SessionID string
}

type OrchestratorConfig struct {
	Detector   *intent.Detector
	Summarizer *Summarizer
	Web        *backends.WebClient
	YouTube    *backends.YouTubeClient
	Weather    *backends.WeatherClient
	Shopping   *backends.ShoppingClient
	Memory     memory.Store
	Writer     *memory.Writer
	Ledger     *memory.Ledger
	MapsKey    string
	Logger     *slog.Logger
}

// Orchestrator runs the full query pipeline: memory lookup, intent
// detection, concurrent source fan-out, summarization, and detached
// persistence of the exchanged turns.
type Orchestrator struct {
	detector   *intent.Detector
	summarizer *Summarizer
	web        *backends.WebClient
	youtube    *backends.YouTubeClient
	weather    *backends.WeatherClient
	shopping   *backends.ShoppingClient
	memory     memory.Store
	writer     *memory.Writer
	ledger     *memory.Ledger
	mapsKey    string
	logger     *slog.Logger
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		detector:   cfg.Detector,
		summarizer: cfg.Summarizer,
		web:        cfg.Web,
		youtube:    cfg.YouTube,
		weather:    cfg.Weather,
		shopping:   cfg.Shopping,
		memory:     cfg.Memory,
		writer:     cfg.Writer,
		ledger:     cfg.Ledger,
		mapsKey:    cfg.MapsKey,
		logger:     cfg.Logger.With("component", "orchestrator"),
	}
}

var (
	nameQueryRe       = regexp.MustCompile(`(?i)(\bmy name\b|\bwho am i\b|\bdo you remember me\b)`)
	recallQueryRe     = regexp.MustCompile(`\bwhat do you remember\b|\bwhat do you know about me\b|\bwhat have i told you\b`)
	weatherVocabRe    = regexp.MustCompile(`(weather|forecast|temperature|rain|snow|thunder|wind|humidity)\b`)
	askCloudyPrefixRe = regexp.MustCompile(`(?i)^AskCloudyContext:\s*`)
	hasDigitRe        = regexp.MustCompile(`\d`)
	locationSplitRe   = regexp.MustCompile(`(?i),| and `)
)

type askCloudyContext struct {
	Kind     string `json:"kind"`
	Selected struct {
		Link  string `json:"link"`
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"selected"`
}

// parseAskCloudyContext pulls the ask-about-selection marker out of the
// context lines, if present.
func parseAskCloudyContext(contextLines []string) *askCloudyContext {
	for _, line := range contextLines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "AskCloudyContext:") {
			continue
		}
		raw := askCloudyPrefixRe.ReplaceAllString(trimmed, "")
		var parsed askCloudyContext
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil
		}
		if parsed.Kind != "ask_cloudy_context" {
			return nil
		}
		return &parsed
	}
	return nil
}

// extractLocationsFromQuery pulls candidate place names out of a weather
// query: the tail after " in "/" for "/" at " split on commas and "and",
// falling back to the whole query when it carries no digits. At most four
// unique locations.
func extractLocationsFromQuery(q string) []string {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return nil
	}
	lowered := strings.ToLower(trimmed)

	tail := ""
	if idx := strings.Index(lowered, " in "); idx >= 0 {
		tail = trimmed[idx+4:]
	} else if idx := strings.Index(lowered, " for "); idx >= 0 {
		tail = trimmed[idx+5:]
	} else if idx := strings.Index(lowered, " at "); idx >= 0 {
		tail = trimmed[idx+4:]
	}

	var parts []string
	if tail != "" {
		for _, part := range locationSplitRe.Split(tail, -1) {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
	}
	if len(parts) == 0 && !hasDigitRe.MatchString(trimmed) {
		parts = append(parts, trimmed)
	}

	seen := make(map[string]bool)
	var out []string
	for _, p := range parts {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) == 4 {
			break
		}
	}
	return out
}

// PerformDynamicSearch resolves a user query into either a direct text
// answer or a full search bundle. The error return is reserved for context
// cancellation; source failures degrade into empty sections.
func (o *Orchestrator) PerformDynamicSearch(ctx context.Context, query string, opts Options) (Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Result{Type: "text"}, nil
	}

	askCloudy := parseAskCloudyContext(opts.Context)

	memLines := o.memoryContext(ctx, trimmed, opts, askCloudy != nil)
	combined := append(append([]string{}, opts.Context...), memLines...)

	detected := o.detector.Detect(ctx, trimmed, combined)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	if !detected.ShouldShowTabs {
		lines := compactLines(detected.OverallSummaryLines)
		content := strings.Join(lines, " ")
		if content == "" {
			content = "Cloudy could not generate a summary for this query."
		}
		o.persistTurns(trimmed, content, opts, map[string]any{"category": "conversation", "mode": "text"})
		return Result{Type: "text", Content: content}, nil
	}

	searchQuery := detected.SearchQuery
	if searchQuery == "" {
		searchQuery = trimmed
	}
	if askCloudy != nil {
		if link := strings.TrimSpace(askCloudy.Selected.Link); link != "" {
			searchQuery = link
		} else if sel := strings.TrimSpace(strings.TrimSpace(askCloudy.Selected.Title) + " " + strings.TrimSpace(askCloudy.Selected.Text)); sel != "" {
			searchQuery = sel
		}
	}

	bundle := o.fanOut(ctx, searchQuery, detected)
	overallSummaryLines := detected.OverallSummaryLines

	if len(bundle.rawWeb) > 0 {
		overall, perItem := o.summarizer.SummarizeItems(ctx, bundle.rawWeb, searchQuery)
		if len(overall) > 0 {
			overallSummaryLines = overall
		}
		bundle.webItems = mergeItemSummaries(bundle.rawWeb, perItem)
	} else if len(compactLines(overallSummaryLines)) == 0 {
		overallSummaryLines = []string{"No results found.", ""}
	}

	summaryText := strings.Join(compactLines(overallSummaryLines), " ")
	assistantContent := summaryText
	if assistantContent == "" {
		assistantContent = "Search results for: " + searchQuery
	}
	o.persistTurns(trimmed, assistantContent, opts, map[string]any{"category": "search", "mode": "tabs"})

	return Result{
		Type: "search",
		Data: &Bundle{
			SearchQuery:         searchQuery,
			OverallSummaryLines: overallSummaryLines,
			WebItems:            bundle.webItems,
			MediaItems:          bundle.media,
			WeatherItems:        bundle.weather,
			YouTubeItems:        bundle.youtube,
			ShoppingItems:       bundle.shopping,
			ShouldShowTabs:      true,
			MapLocation:         detected.MapLocation,
			GoogleMapsKey:       o.mapsKey,
		},
	}, nil
}

// memoryContext runs the long-term memory lookup, specializing the query for
// name and recall questions. Skipped entirely for ask-about-selection
// requests, which are anchored on the selected item rather than the user.
func (o *Orchestrator) memoryContext(ctx context.Context, query string, opts Options, isAskCloudy bool) []string {
	if o.memory == nil || opts.UserID == "" || isAskCloudy {
		return nil
	}

	memQuery := query
	if nameQueryRe.MatchString(query) {
		memQuery = "name"
	} else if recallQueryRe.MatchString(strings.ToLower(query)) {
		memQuery = "profile preferences history"
	}

	lines, err := o.memory.Search(ctx, memQuery, memory.IDs{UserID: opts.UserID, SessionID: opts.SessionID})
	if err != nil {
		o.logger.Warn("memory lookup failed", "error", err)
		return nil
	}
	return lines
}

type fanOutResult struct {
	rawWeb   []backends.WebItem
	webItems []WebResult
	media    []backends.ImageItem
	weather  []backends.WeatherItem
	youtube  []backends.YouTubeVideo
	shopping []backends.ShoppingProduct
}

// fanOut queries every relevant source concurrently. Each branch recovers to
// an empty section on panic so one misbehaving backend cannot take down the
// whole response.
func (o *Orchestrator) fanOut(ctx context.Context, searchQuery string, detected intent.Result) fanOutResult {
	var out fanOutResult
	var wg sync.WaitGroup

	branch := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("search branch panicked", "branch", name, "panic", r)
				}
			}()
			fn()
		}()
	}

	branch("web", func() {
		out.rawWeb = o.web.Search(ctx, searchQuery, 0)
	})
	branch("images", func() {
		out.media = o.web.SearchImages(ctx, searchQuery, 0)
	})
	branch("weather", func() {
		lower := strings.ToLower(searchQuery)
		if !weatherVocabRe.MatchString(lower) {
			return
		}
		locs := extractLocationsFromQuery(searchQuery)
		if len(locs) == 0 {
			return
		}
		items := make([]backends.WeatherItem, len(locs))
		var cityWG sync.WaitGroup
		for i, city := range locs {
			cityWG.Add(1)
			go func(i int, city string) {
				defer cityWG.Done()
				items[i] = o.weather.FetchCity(ctx, city)
			}(i, city)
		}
		cityWG.Wait()
		out.weather = items
	})
	branch("youtube", func() {
		if detected.YouTubeQuery == "" {
			return
		}
		out.youtube = o.youtube.Search(ctx, detected.YouTubeQuery, 0)
	})
	branch("shopping", func() {
		if detected.ShoppingQuery == "" {
			return
		}
		out.shopping = o.shopping.Search(ctx, detected.ShoppingQuery, 0)
	})

	wg.Wait()
	return out
}

// mergeItemSummaries pairs raw results with their model summaries, keeping
// the original item order. Items the model skipped fall back to their
// snippet; every item ends up with exactly three summary lines.
func mergeItemSummaries(raw []backends.WebItem, summaries []ItemSummary) []WebResult {
	byIndex := make(map[int][]string, len(summaries))
	for _, s := range summaries {
		if _, ok := byIndex[s.Index]; !ok {
			byIndex[s.Index] = s.SummaryLines
		}
	}

	items := make([]WebResult, 0, len(raw))
	for i, it := range raw {
		lines := compactLines(byIndex[i])
		if len(lines) > 3 {
			lines = lines[:3]
		}
		if len(lines) == 0 && it.Snippet != "" {
			lines = []string{it.Snippet}
		}
		normalized := make([]string, 3)
		copy(normalized, lines)
		items = append(items, WebResult{
			Link:         it.Link,
			Title:        it.Title,
			SummaryLines: normalized,
			ImageURL:     it.ImageURL,
		})
	}
	return items
}

// persistTurns records the exchange in long-term memory through the
// background writer and appends it to the local session history. Both are
// detached from the response path.
func (o *Orchestrator) persistTurns(userText, assistantText string, opts Options, metadata map[string]any) {
	if o.writer != nil && opts.UserID != "" {
		o.writer.Enqueue(
			[]memory.Message{
				{Role: "user", Content: userText},
				{Role: "assistant", Content: assistantText},
			},
			memory.IDs{UserID: opts.UserID, SessionID: opts.SessionID},
			metadata,
		)
	}
	if o.ledger != nil && opts.SessionID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.ledger.SaveTurn(ctx, opts.SessionID, "user", userText); err != nil {
			o.logger.Warn("saving user turn failed", "error", err)
		}
		if err := o.ledger.SaveTurn(ctx, opts.SessionID, "assistant", assistantText); err != nil {
			o.logger.Warn("saving assistant turn failed", "error", err)
		}
	}
}
