package intent

import "github.com/atomtech/cloudy/internal/providers"

// intentToolParams is shared by the "json" and "intent" declarations; some
// models insist on one name over the other, so both are offered.
func intentToolParams() providers.Schema {
	return providers.Schema{
		Properties: map[string]providers.Property{
			"shouldShowTabs": {
				Type:        "string",
				Description: `Whether search tabs should be shown. Use "true" or "false" (string).`,
			},
			"response": {
				Type:        "string",
				Description: "Very short plain-text summary or reply for the user (1-2 short sentences).",
			},
			"searchQuery": {
				Type:        "string",
				Description: "Optional refined web search query if search tabs should be shown. Empty string if not needed.",
			},
			"youtubeQuery": {
				Type:        "string",
				Description: "Optional YouTube search query when the user mainly wants videos. Empty string if not needed.",
			},
			"mapLocation": {
				Type:        "string",
				Description: "Optional city, place name, or address for maps when the query is about a location.",
			},
			"shoppingQuery": {
				Type:        "string",
				Description: "Optional shopping query string when the user is mainly looking for products to buy.",
			},
		},
		Required: []string{"shouldShowTabs", "response"},
	}
}

func toolDeclarations() []providers.ToolDef {
	intentDesc := "Return a structured intent result for the current query. Use this for most queries instead of plain text."
	return []providers.ToolDef{
		{Name: "json", Description: intentDesc, Parameters: intentToolParams()},
		{Name: "intent", Description: intentDesc, Parameters: intentToolParams()},
		{
			Name:        "shopping_search",
			Description: "Search for products using Google Shopping for the given query.",
			Parameters: providers.Schema{
				Properties: map[string]providers.Property{
					"query": {Type: "string", Description: `Product search query, for example: "macbook air m3 laptop".`},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "web_search",
			Description: "Runs Google web search for the query",
			Parameters: providers.Schema{
				Properties: map[string]providers.Property{
					"query": {Type: "string", Description: "Search query"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "google_maps",
			Description: "Show a map, directions, or location for the query",
			Parameters: providers.Schema{
				Properties: map[string]providers.Property{
					"location": {Type: "string", Description: "Location name or address"},
				},
				Required: []string{"location"},
			},
		},
		{
			Name:        "youtube_search",
			Description: "Search YouTube for videos matching the query",
			Parameters: providers.Schema{
				Properties: map[string]providers.Property{
					"query": {Type: "string"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "get_current_fx_rate",
			Description: "Get FX rate between currencies",
			Parameters: providers.Schema{
				Properties: map[string]providers.Property{
					"base":   {Type: "string"},
					"symbol": {Type: "string"},
				},
				Required: []string{"base", "symbol"},
			},
		},
	}
}
