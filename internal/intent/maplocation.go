package intent

import (
	"regexp"
	"strings"
)

var (
	quoteTrimRe      = regexp.MustCompile("^['\"`]+|['\"`]+$")
	mapIntentRe      = regexp.MustCompile(`(?i)\b(map|maps|directions|direction|route|navigate|navigation|location|address|where is|nearest|closest)\b`)
	mediaIntentRe    = regexp.MustCompile(`(?i)\b(youtube|yt|video|videos)\b`)
	placeKeywordRe   = regexp.MustCompile(`(?i)\b(city|country|state|province|county|street|st|road|rd|avenue|ave|boulevard|blvd|drive|dr|lane|ln|place|pl|square|sq|mall|market|park|museum|airport|station|university|college|hospital|hotel|restaurant|cafe|bar|shop|store|beach|trail|temple|church|mosque)\b`)
	geoPrepositionRe = regexp.MustCompile(`(?i)\b(in|near|around|at)\b`)
	blockedSingleRe  = regexp.MustCompile(`(?i)\b(dog|dogs|cat|cats|animal|animals|song|songs|lyrics|video|videos|youtube|yt|joke|jokes|meme|memes|recipe|recipes|code|api|error)\b`)
	hasDigitRe       = regexp.MustCompile(`\d`)
	hasUpperRe       = regexp.MustCompile(`[A-Z]`)
)

// shouldAllowMapLocation gates model-proposed map locations. The model is
// eager to call google_maps for anything vaguely place-shaped, so a location
// only passes when the user's own words support a geographic reading.
func shouldAllowMapLocation(location, userQuery string) bool {
	loc := quoteTrimRe.ReplaceAllString(strings.TrimSpace(location), "")
	q := strings.TrimSpace(userQuery)
	if loc == "" || q == "" {
		return false
	}
	if looksLikeSmallTalk(loc) || looksLikeSmallTalk(q) {
		return false
	}

	words := strings.Fields(loc)
	// Long paragraphs and sentences are never locations.
	if len(loc) > 80 || len(words) > 8 {
		return false
	}

	qLower := strings.ToLower(q)
	hasExplicitMapIntent := mapIntentRe.MatchString(qLower)

	if mediaIntentRe.MatchString(qLower) && !hasExplicitMapIntent {
		return false
	}

	hasDigits := hasDigitRe.MatchString(loc)
	hasComma := strings.Contains(loc, ",")
	hasPlaceKeyword := placeKeywordRe.MatchString(qLower)

	if hasExplicitMapIntent {
		return true
	}
	if (hasDigits || hasComma) && hasPlaceKeyword {
		return true
	}

	if len(words) >= 2 && (geoPrepositionRe.MatchString(qLower) || hasPlaceKeyword) {
		return true
	}

	if len(words) == 1 {
		// A bare single word only counts as a location when someone bothered
		// to capitalize it and it is not obviously media or chatter.
		if !hasUpperRe.MatchString(location) && !hasUpperRe.MatchString(q) {
			return false
		}
		if blockedSingleRe.MatchString(qLower) {
			return false
		}
		return true
	}

	return false
}
