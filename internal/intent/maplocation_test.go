package intent

import "testing"

func TestShouldAllowMapLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		query    string
		want     bool
	}{
		{"explicit map intent", "Tokyo", "where is Tokyo", true},
		{"directions", "SFO", "directions to SFO", true},
		{"bare capitalized city", "Paris", "Paris", true},
		{"two words with preposition", "New York", "restaurants in New York", true},
		{"place keyword", "Eiffel Tower", "eiffel tower museum hours", true},
		{"address with digits and place keyword", "221B Baker Street", "221b baker street address", true},

		{"empty location", "", "where is Tokyo", false},
		{"empty query", "Tokyo", "", false},
		{"small talk query", "Tokyo", "thanks", false},
		{"media intent wins", "funny cats", "funny cat videos", false},
		{"blocked single word topic", "Dogs", "dogs", false},
		{"lowercase single word", "paris", "paris", false},
		{"nine word location", "a b c d e f g h i", "map of something", false},
		{"long paragraph", "this is a very long piece of text that is definitely not a location at all okay", "show me", false},
		{"no geo signal two words", "blue widgets", "blue widgets", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldAllowMapLocation(tt.location, tt.query); got != tt.want {
				t.Errorf("shouldAllowMapLocation(%q, %q) = %v, want %v", tt.location, tt.query, got, tt.want)
			}
		})
	}
}

func TestShouldAllowMapLocationTrimsQuotes(t *testing.T) {
	if !shouldAllowMapLocation(`"Tokyo"`, "where is Tokyo") {
		t.Error("quoted location should be trimmed and allowed")
	}
}
