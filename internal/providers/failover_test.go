package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRunWithKeysNoKeys(t *testing.T) {
	err := runWithKeys(context.Background(), nil, time.Millisecond, testLogger(), nil,
		func(ctx context.Context, key string) error { return nil })
	if !errors.Is(err, ErrNoKeys) {
		t.Fatalf("expected ErrNoKeys, got %v", err)
	}
}

func TestRunWithKeysFirstKeyWins(t *testing.T) {
	calls := 0
	err := runWithKeys(context.Background(), []string{"key-a", "key-b"}, time.Millisecond, testLogger(), nil,
		func(ctx context.Context, key string) error {
			calls++
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestRunWithKeysTerminalSkipsRetries(t *testing.T) {
	var tried []string
	err := runWithKeys(context.Background(), []string{"key-a", "key-b"}, time.Millisecond, testLogger(), nil,
		func(ctx context.Context, key string) error {
			tried = append(tried, key)
			return errors.New("API error (status 403): API key not valid")
		})
	if err == nil {
		t.Fatal("expected error")
	}
	// One attempt per key: auth failures are terminal for that key.
	if len(tried) != 2 {
		t.Errorf("expected 2 attempts, got %d (%v)", len(tried), tried)
	}
	if tried[0] != "key-a" || tried[1] != "key-b" {
		t.Errorf("keys tried out of order: %v", tried)
	}
	if !strings.Contains(err.Error(), "all API keys failed") {
		t.Errorf("final error missing wrap: %v", err)
	}
}

func TestRunWithKeysRetryableExhaustsAttempts(t *testing.T) {
	calls := 0
	err := runWithKeys(context.Background(), []string{"key-a"}, time.Millisecond, testLogger(), nil,
		func(ctx context.Context, key string) error {
			calls++
			return errors.New("API error (status 429): rate limit reached")
		})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != maxAttemptsPerKey {
		t.Errorf("expected %d attempts, got %d", maxAttemptsPerKey, calls)
	}
}

func TestRunWithKeysFailoverToSecondKey(t *testing.T) {
	err := runWithKeys(context.Background(), []string{"bad", "good"}, time.Millisecond, testLogger(), nil,
		func(ctx context.Context, key string) error {
			if key == "bad" {
				return errors.New("quota exceeded for this project")
			}
			return nil
		})
	if err != nil {
		t.Fatalf("expected second key to succeed, got %v", err)
	}
}

func TestRunWithKeysWrapsLastError(t *testing.T) {
	last := errors.New("connection refused")
	err := runWithKeys(context.Background(), []string{"key-a", "key-b"}, time.Millisecond, testLogger(), nil,
		func(ctx context.Context, key string) error {
			if key == "key-b" {
				return fmt.Errorf("API request: %w", last)
			}
			return errors.New("quota exceeded")
		})
	if !errors.Is(err, last) {
		t.Errorf("expected final error to wrap last failure, got %v", err)
	}
}

func TestRunWithKeysContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := runWithKeys(ctx, []string{"key-a"}, time.Hour, testLogger(), nil,
		func(ctx context.Context, key string) error {
			calls++
			return errors.New("overloaded")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", calls)
	}
}

func TestGroqRetryDelayHonorsServerHint(t *testing.T) {
	err := errors.New(`API error (status 429): {"error":{"message":"Rate limit reached. Please retry in 2s."}}`)
	if got := groqRetryDelay(err, time.Millisecond); got != 2*time.Second {
		t.Errorf("expected 2s from server hint, got %v", got)
	}
	if got := groqRetryDelay(errors.New("overloaded"), 750*time.Millisecond); got != 750*time.Millisecond {
		t.Errorf("expected fallback delay, got %v", got)
	}
}

func TestDedupeKeys(t *testing.T) {
	got := dedupeKeys([]string{" key-a ", "key-b", "key-a", "", "key-b"})
	if len(got) != 2 || got[0] != "key-a" || got[1] != "key-b" {
		t.Errorf("unexpected result: %v", got)
	}
}
