package providers

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureReason
	}{
		{"nil", nil, ReasonUnknown},
		{"bad key", errors.New("API key not valid. Please pass a valid API key."), ReasonAuth},
		{"permission", errors.New("rpc error: PERMISSION_DENIED"), ReasonAuth},
		{"http 401", errors.New("API error (status 401): unauthorized"), ReasonAuth},
		{"quota", errors.New("Quota exceeded for quota metric"), ReasonQuota},
		{"resource exhausted", errors.New("rpc error: RESOURCE_EXHAUSTED"), ReasonQuota},
		{"rate limit", errors.New("API error (status 429): rate limit reached"), ReasonRateLimit},
		{"overloaded", errors.New("the model is overloaded"), ReasonOverloaded},
		{"unavailable", errors.New("rpc error: UNAVAILABLE"), ReasonOverloaded},
		{"network", errors.New("API request: dial tcp: connection refused"), ReasonNetwork},
		{"deadline", errors.New("context deadline exceeded"), ReasonNetwork},
		{"other", errors.New("something odd"), ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFailureReasonPredicates(t *testing.T) {
	if !ReasonAuth.Terminal() || !ReasonQuota.Terminal() {
		t.Error("auth and quota must be terminal")
	}
	if ReasonRateLimit.Terminal() || ReasonOverloaded.Terminal() {
		t.Error("rate limit and overloaded must not be terminal")
	}
	for _, r := range []FailureReason{ReasonRateLimit, ReasonOverloaded, ReasonNetwork, ReasonUnknown} {
		if !r.Retryable() {
			t.Errorf("%v should be retryable", r)
		}
	}
	if ReasonAuth.Retryable() || ReasonQuota.Retryable() {
		t.Error("terminal reasons must not be retryable")
	}
}
