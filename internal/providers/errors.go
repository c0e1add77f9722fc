package providers

import "strings"

// FailureReason categorizes why a provider call failed.
type FailureReason int

const (
	ReasonUnknown    FailureReason = iota
	ReasonAuth                     // invalid key / permission denied
	ReasonQuota                    // quota explicitly exhausted
	ReasonRateLimit                // 429 — worth retrying the same key
	ReasonOverloaded               // 503 / model overloaded
	ReasonNetwork                  // fetch/connection failure
)

func (r FailureReason) String() string {
	switch r {
	case ReasonAuth:
		return "auth"
	case ReasonQuota:
		return "quota"
	case ReasonRateLimit:
		return "rate_limit"
	case ReasonOverloaded:
		return "overloaded"
	case ReasonNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Terminal returns true when retrying the same key cannot succeed: the key is
// invalid or its quota is fully spent. The failover loop moves to the next key
// immediately instead of burning retries.
func (r FailureReason) Terminal() bool {
	return r == ReasonAuth || r == ReasonQuota
}

// Retryable returns true if the same key is worth another attempt after backoff.
func (r FailureReason) Retryable() bool {
	switch r {
	case ReasonRateLimit, ReasonOverloaded, ReasonNetwork, ReasonUnknown:
		return true
	default:
		return false
	}
}

// Classify pattern-matches error messages and embedded status codes. The two
// backend families surface failures as strings (gRPC status names from Gemini,
// HTTP statuses from the OpenAI-compatible wire), so string matching is the
// only classification both share.
func Classify(err error) FailureReason {
	if err == nil {
		return ReasonUnknown
	}
	msg := err.Error()

	if containsAny(msg, "api key not valid", "permission denied", "permission_denied", "status 401", "status 403", "unauthorized", "invalid api key") {
		return ReasonAuth
	}
	if containsAny(msg, "quota exceeded", "resource_exhausted") {
		return ReasonQuota
	}
	if containsAny(msg, "status 429", "rate limit", "too many requests") {
		return ReasonRateLimit
	}
	if containsAny(msg, "status 503", "503", "overloaded", "unavailable", "temporarily unavailable") {
		return ReasonOverloaded
	}
	if containsAny(msg, "fetch failed", "network", "connection refused", "connection reset", "timeout", "deadline exceeded") {
		return ReasonNetwork
	}

	return ReasonUnknown
}

func containsAny(s string, patterns ...string) bool {
	lower := strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
