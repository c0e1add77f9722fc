package intent

import (
	"fmt"
	"strings"

	"github.com/atomtech/cloudy/internal/providers"
)

// FXRequest is a currency pair the model asked to resolve. The fold records
// it; the detector performs the actual lookup.
type FXRequest struct {
	Base   string
	Symbol string
}

// foldResult is the accumulated outcome of walking the model's tool calls.
type foldResult struct {
	ShouldShowTabs bool
	SearchQuery    string
	SummaryLines   []string
	MapLocation    string
	YouTubeQuery   string
	WebSearchQuery string
	ShoppingQuery  string
	FX             *FXRequest
}

// argString reads a tool argument as a string, tolerating any JSON type the
// model decides to send. Missing or nil values fall back to def.
func argString(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// reduceToolCalls folds the model's tool calls into a single intent result.
// Pure: no network, no clocks, no mutation of inputs. Processing order is the
// model's emission order; searchQuery keeps its first value while the
// per-source queries keep their last, and summary lines are only auto-filled
// when nothing set them yet.
func reduceToolCalls(calls []providers.ToolCall, safeQuery string) foldResult {
	var st foldResult

	setSearchQuery := func(q string) {
		if st.SearchQuery == "" {
			st.SearchQuery = q
		}
	}
	setSummaryIfEmpty := func(line string) {
		if len(st.SummaryLines) == 0 {
			st.SummaryLines = []string{line, ""}
		}
	}

	for _, fc := range calls {
		args := fc.Args
		if args == nil {
			args = map[string]any{}
		}

		switch fc.Name {
		case "json", "intent":
			rawTabs := strings.TrimSpace(strings.ToLower(argString(args, "shouldShowTabs", "")))
			if rawTabs == "true" || rawTabs == "false" {
				st.ShouldShowTabs = rawTabs == "true"
			}
			if resp := strings.TrimSpace(argString(args, "response", "")); resp != "" {
				st.SummaryLines = []string{resp, ""}
			}
			if sq := strings.TrimSpace(argString(args, "searchQuery", "")); sq != "" {
				st.ShouldShowTabs = true
				setSearchQuery(sq)
				st.WebSearchQuery = sq
			}
			if yq := strings.TrimSpace(argString(args, "youtubeQuery", "")); yq != "" {
				st.ShouldShowTabs = true
				st.YouTubeQuery = yq
				setSearchQuery(yq)
				setSummaryIfEmpty("Found videos for: " + yq)
			}
			if loc := strings.TrimSpace(argString(args, "mapLocation", "")); loc != "" && shouldAllowMapLocation(loc, safeQuery) {
				st.ShouldShowTabs = true
				st.MapLocation = loc
				setSearchQuery(loc)
				setSummaryIfEmpty("Showing map for: " + loc)
			}
			if shop := strings.TrimSpace(argString(args, "shoppingQuery", "")); shop != "" {
				st.ShouldShowTabs = true
				st.ShoppingQuery = shop
				setSearchQuery(shop)
				setSummaryIfEmpty("Found products for: " + shop)
			}

		case "web_search":
			st.ShouldShowTabs = true
			if q := strings.TrimSpace(argString(args, "query", safeQuery)); q != "" {
				st.WebSearchQuery = q
				setSearchQuery(q)
			}

		case "youtube_search":
			st.ShouldShowTabs = true
			st.YouTubeQuery = argString(args, "query", safeQuery)
			setSearchQuery(st.YouTubeQuery)
			setSummaryIfEmpty("Found videos for: " + st.YouTubeQuery)

		case "google_maps":
			loc := argString(args, "location", "")
			if !shouldAllowMapLocation(loc, safeQuery) {
				continue
			}
			st.ShouldShowTabs = true
			st.MapLocation = loc
			setSearchQuery(loc)
			setSummaryIfEmpty("Showing map for: " + loc)

		case "get_current_fx_rate":
			base := strings.ToUpper(argString(args, "base", "USD"))
			symbol := strings.ToUpper(argString(args, "symbol", "INR"))
			if base == "" {
				base = "USD"
			}
			if symbol == "" {
				symbol = "INR"
			}
			st.FX = &FXRequest{Base: base, Symbol: symbol}

		case "shopping_search":
			if q := strings.TrimSpace(argString(args, "query", safeQuery)); q != "" {
				st.ShouldShowTabs = true
				st.ShoppingQuery = q
				setSearchQuery(q)
				setSummaryIfEmpty("Found products for: " + q)
			}
		}
	}

	return st
}
