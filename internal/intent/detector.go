package intent

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/atomtech/cloudy/internal/providers"
)

const maxQueryLen = 512

// Result is the detected intent for a single user query. Empty strings mean
// the corresponding surface is not wanted.
type Result struct {
	ShouldShowTabs      bool     `json:"shouldShowTabs"`
	SearchQuery         string   `json:"searchQuery"`
	OverallSummaryLines []string `json:"overallSummaryLines"`
	MapLocation         string   `json:"mapLocation,omitempty"`
	YouTubeQuery        string   `json:"youtubeQuery,omitempty"`
	WebSearchQuery      string   `json:"webSearchQuery,omitempty"`
	ShoppingQuery       string   `json:"shoppingQuery,omitempty"`
}

// RateFunc resolves a currency pair to a rate. ok is false when the service
// answered but had no rate for the pair.
type RateFunc func(ctx context.Context, base, symbol string) (rate float64, ok bool, err error)

// Detector turns free-form user queries into structured intent. All
// collaborators are injected; the zero value is not usable.
type Detector struct {
	gemini      providers.Client
	groq        providers.Client
	preference  string // "gemini" or "groq"
	geminiModel string
	groqModel   string
	fxRate      RateFunc
	logger      *slog.Logger
}

type DetectorConfig struct {
	Gemini      providers.Client
	Groq        providers.Client
	Preference  string
	GeminiModel string
	GroqModel   string
	FXRate      RateFunc
	Logger      *slog.Logger
}

func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{
		gemini:      cfg.Gemini,
		groq:        cfg.Groq,
		preference:  strings.ToLower(cfg.Preference),
		geminiModel: cfg.GeminiModel,
		groqModel:   cfg.GroqModel,
		fxRate:      cfg.FXRate,
		logger:      cfg.Logger.With("component", "intent"),
	}
}

// Detect runs the full pipeline: small-talk short circuit, explicit prefix
// overrides, the tool-calling model pass, and the deterministic cleanups
// after it. It never returns an error; failures degrade into user-facing
// summary lines.
func (d *Detector) Detect(ctx context.Context, query string, contextLines []string) Result {
	trimmed := strings.TrimSpace(query)

	if looksLikeSmallTalk(trimmed) {
		return Result{OverallSummaryLines: []string{smallTalkReply(trimmed), ""}}
	}

	if rest, ok := strings.CutPrefix(trimmed, "YouTube "); ok {
		q := strings.TrimSpace(rest)
		return Result{
			ShouldShowTabs:      true,
			SearchQuery:         q,
			YouTubeQuery:        q,
			OverallSummaryLines: []string{"Found videos for: " + q, ""},
		}
	}

	safeQuery := truncateRunes(trimmed, maxQueryLen)
	if safeQuery == "" {
		return Result{OverallSummaryLines: []string{}}
	}

	client, model := d.pickProvider()
	if client == nil {
		d.logger.Warn("no AI keys configured, intent detection disabled")
		return Result{
			SearchQuery: safeQuery,
			OverallSummaryLines: []string{
				"AI is disabled because API keys are not set on the server.",
				"",
			},
		}
	}

	req := providers.GenerateRequest{
		Model:  model,
		Text:   safeQuery,
		System: buildSystemParts(contextLines),
		Tools:  toolDeclarations(),
	}

	start := time.Now()
	resp, err := client.GenerateContent(ctx, req)
	if err != nil {
		d.logger.Warn("intent model call failed",
			"provider", client.Name(),
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return Result{OverallSummaryLines: errorSummaryLines(err)}
	}
	d.logger.Debug("intent model call done",
		"provider", client.Name(),
		"latency_ms", time.Since(start).Milliseconds(),
		"tool_calls", len(resp.ToolCalls),
	)

	var result Result
	if len(resp.ToolCalls) > 0 {
		st := reduceToolCalls(resp.ToolCalls, safeQuery)
		result = Result{
			ShouldShowTabs:      st.ShouldShowTabs,
			SearchQuery:         st.SearchQuery,
			OverallSummaryLines: st.SummaryLines,
			MapLocation:         st.MapLocation,
			YouTubeQuery:        st.YouTubeQuery,
			WebSearchQuery:      st.WebSearchQuery,
			ShoppingQuery:       st.ShoppingQuery,
		}
		if st.FX != nil {
			result.OverallSummaryLines = d.resolveFX(ctx, st.FX)
		}
		if len(result.OverallSummaryLines) == 0 {
			line := resp.Text
			if line == "" {
				line = truncateRunes(safeQuery, 120)
			}
			result.OverallSummaryLines = []string{line, ""}
		}
	} else {
		line := resp.Text
		if line == "" {
			line = truncateRunes(safeQuery, 120)
		}
		result.OverallSummaryLines = []string{line, ""}
	}

	// Tabs with nothing to put in them are a UI dead end.
	if result.ShouldShowTabs &&
		result.WebSearchQuery == "" && result.YouTubeQuery == "" &&
		result.MapLocation == "" && result.ShoppingQuery == "" {
		result.ShouldShowTabs = false
	}

	return result
}

func (d *Detector) pickProvider() (providers.Client, string) {
	groqReady := d.groq != nil && d.groq.Ready()
	geminiReady := d.gemini != nil && d.gemini.Ready()

	switch {
	case d.preference == "groq" && groqReady:
		return d.groq, d.groqModel
	case geminiReady:
		return d.gemini, d.geminiModel
	case groqReady:
		return d.groq, d.groqModel
	default:
		return nil, ""
	}
}

func (d *Detector) resolveFX(ctx context.Context, fx *FXRequest) []string {
	if d.fxRate == nil {
		return []string{"FX service error", ""}
	}
	rate, ok, err := d.fxRate(ctx, fx.Base, fx.Symbol)
	if err != nil {
		d.logger.Warn("FX lookup failed", "base", fx.Base, "symbol", fx.Symbol, "error", err)
		return []string{"FX service error", ""}
	}
	if !ok {
		return []string{"Rate unavailable for " + fx.Base + "/" + fx.Symbol, ""}
	}
	return []string{fx.Base + "→" + fx.Symbol + ": " + strconv.FormatFloat(rate, 'f', -1, 64), ""}
}

func buildSystemParts(contextLines []string) []string {
	parts := []string{detectIntentSystemPrompt}
	if len(contextLines) == 0 {
		return parts
	}

	lines := contextLines
	if len(lines) > 100 {
		lines = lines[len(lines)-100:]
	}
	var sb strings.Builder
	sb.WriteString("\n\nBelow is the user's complete profile, relevant memories, and recent conversation history to provide context for the current query:\n")
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(line)
	}
	return append(parts, sb.String())
}

func errorSummaryLines(err error) []string {
	switch providers.Classify(err) {
	case providers.ReasonQuota, providers.ReasonRateLimit:
		return []string{"AI quota exceeded. Please retry shortly.", ""}
	case providers.ReasonOverloaded:
		return []string{"Cloudy is overloaded right now. Please try again shortly.", ""}
	case providers.ReasonNetwork:
		return []string{"Network error talking to AI. Please check connection or API key.", ""}
	default:
		return []string{"AI processing error: " + err.Error(), ""}
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
