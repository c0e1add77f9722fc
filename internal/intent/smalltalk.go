package intent

import (
	"regexp"
	"strings"
)

var politePhrases = []string{
	"thanks",
	"thank you",
	"thx",
	"tysm",
	"appreciate it",
	"appreciate that",
	"you rock",
	"you are awesome",
	"you're awesome",
	"good bot",
	"nice",
	"cool",
	"great",
	"awesome",
	"ok thanks",
	"okay thanks",
	"ok thank you",
	"okay thank you",
	"hi",
	"hello",
	"hey",
	"good morning",
	"good afternoon",
	"good evening",
}

var simpleReplies = map[string]bool{
	"ok":          true,
	"okay":        true,
	"k":           true,
	"sure":        true,
	"got it":      true,
	"makes sense": true,
	"ya":          true,
	"yeah":        true,
	"yep":         true,
	"nope":        true,
}

// looksLikeSmallTalk catches acknowledgements, greetings and thanks so they
// never reach the model or the tool pipeline. Anything over 80 characters is
// assumed to be a real query.
func looksLikeSmallTalk(query string) bool {
	raw := strings.ToLower(strings.TrimSpace(query))
	if raw == "" || len(raw) > 80 {
		return false
	}

	for _, phrase := range politePhrases {
		if raw == phrase || strings.HasPrefix(raw, phrase+" ") || strings.HasSuffix(raw, " "+phrase) {
			return true
		}
	}

	return simpleReplies[raw]
}

var asksNameRe = regexp.MustCompile(`\b(your name|who are you|what are you|who r u)\b`)

// smallTalkReply picks the canned line for a query that passed
// looksLikeSmallTalk.
func smallTalkReply(query string) string {
	lower := strings.ToLower(strings.TrimSpace(query))
	switch {
	case strings.Contains(lower, "thank"),
		strings.Contains(lower, "thx"),
		strings.Contains(lower, "tysm"),
		strings.Contains(lower, "appreciate"):
		return "You're welcome! Anything else you want to do?"
	case asksNameRe.MatchString(lower):
		return "I'm Cloudy, your AI assistant. What can I help you with?"
	default:
		return "Hi! What can I help you with?"
	}
}
