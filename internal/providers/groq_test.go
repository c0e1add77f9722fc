package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGroqGenerateContent(t *testing.T) {
	var captured groqRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there","tool_calls":[{"function":{"name":"web_search","arguments":"{\"query\":\"golang\"}"}}]}}]}`)
	}))
	defer srv.Close()

	c := NewGroqWithBaseURL(srv.URL, []string{"test-key"}, testLogger())
	result, err := c.GenerateContent(context.Background(), GenerateRequest{
		Model:  "openai/gpt-oss-120b",
		Text:   "search golang",
		System: []string{"part one", "part two"},
		Tools: []ToolDef{{
			Name:        "web_search",
			Description: "search the web",
			Parameters: Schema{
				Properties: map[string]Property{"query": {Type: "string"}},
				Required:   []string{"query"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Text != "hello there" {
		t.Errorf("unexpected text %q", result.Text)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Name != "web_search" {
		t.Fatalf("unexpected tool calls: %+v", result.ToolCalls)
	}
	if result.ToolCalls[0].Args["query"] != "golang" {
		t.Errorf("unexpected args: %v", result.ToolCalls[0].Args)
	}

	if captured.ToolChoice != "auto" {
		t.Errorf("expected tool_choice auto, got %q", captured.ToolChoice)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	if captured.Messages[0].Content != "part one\npart two" {
		t.Errorf("system parts not joined: %q", captured.Messages[0].Content)
	}
}

func TestGroqGenerateMalformedToolArgs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"","tool_calls":[{"function":{"name":"intent","arguments":"not json"}}]}}]}`)
	}))
	defer srv.Close()

	c := NewGroqWithBaseURL(srv.URL, []string{"k"}, testLogger())
	result, err := c.GenerateContent(context.Background(), GenerateRequest{Model: "m", Text: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected tool call, got %+v", result.ToolCalls)
	}
	if len(result.ToolCalls[0].Args) != 0 {
		t.Errorf("malformed arguments should decode to empty map, got %v", result.ToolCalls[0].Args)
	}
}

func TestGroqKeyFailover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer dead-key" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"Invalid API Key"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewGroqWithBaseURL(srv.URL, []string{"dead-key", "live-key"}, testLogger())
	result, err := c.GenerateContent(context.Background(), GenerateRequest{Model: "m", Text: "q"})
	if err != nil {
		t.Fatalf("expected failover to second key, got %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("unexpected text %q", result.Text)
	}
}

func TestGroqStreamContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req groqRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if !req.Stream {
			t.Error("expected stream request")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo \"}}]}\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewGroqWithBaseURL(srv.URL, []string{"k"}, testLogger())
	var sb strings.Builder
	err := c.StreamContent(context.Background(), GenerateRequest{Model: "m", Text: "q"}, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.String() != "Hello world" {
		t.Errorf("reassembled stream = %q", sb.String())
	}
}

func TestGroqStreamFallsBackToFullGeneration(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req groqRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"streaming unsupported"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"plain  text"}}]}`)
	}))
	defer srv.Close()

	c := NewGroqWithBaseURL(srv.URL, []string{"k"}, testLogger())
	var sb strings.Builder
	err := c.StreamContent(context.Background(), GenerateRequest{Model: "m", Text: "q"}, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("fallback should succeed, got %v", err)
	}
	if sb.String() != "plain  text" {
		t.Errorf("fallback reassembly = %q", sb.String())
	}
}

func TestGroqStreamEmitErrorStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 100; i++ {
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	stop := fmt.Errorf("consumer gone")
	c := NewGroqWithBaseURL(srv.URL, []string{"k"}, testLogger())
	seen := 0
	err := c.StreamContent(context.Background(), GenerateRequest{Model: "m", Text: "q"}, func(chunk string) error {
		seen++
		if seen >= 3 {
			return stop
		}
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "consumer gone") {
		t.Fatalf("expected emit error to surface, got %v", err)
	}
	if seen != 3 {
		t.Errorf("expected consumption to stop at 3 chunks, got %d", seen)
	}
}
