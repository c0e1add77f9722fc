package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqBaseDelay      = 750 * time.Millisecond
)

// retryHintRe matches the "retry in 2s" wait advice Groq embeds in 429 bodies.
var retryHintRe = regexp.MustCompile(`retry in (\d+(?:\.\d+)?)s`)

// GroqClient speaks the OpenAI chat/completions wire format. Like the Gemini
// client it owns an ordered key list and fails over internally, but honors the
// server-advised retry delay when one is present in the error body.
type GroqClient struct {
	baseURL string
	keys    []string
	logger  *slog.Logger
	client  *http.Client
}

func NewGroq(keys []string, logger *slog.Logger) *GroqClient {
	return &GroqClient{
		baseURL: groqDefaultBaseURL,
		keys:    dedupeKeys(keys),
		logger:  logger.With("provider", "groq"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// NewGroqWithBaseURL points the client at a non-default endpoint. Used by
// tests and by deployments fronting Groq with a proxy.
func NewGroqWithBaseURL(baseURL string, keys []string, logger *slog.Logger) *GroqClient {
	c := NewGroq(keys, logger)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *GroqClient) Name() string { return "groq" }
func (c *GroqClient) Ready() bool  { return len(c.keys) > 0 }

// groqRetryDelay prefers the server's own wait advice over the exponential
// fallback.
func groqRetryDelay(err error, fallback time.Duration) time.Duration {
	if err == nil {
		return fallback
	}
	m := retryHintRe.FindStringSubmatch(err.Error())
	if m == nil {
		return fallback
	}
	secs, parseErr := strconv.ParseFloat(m[1], 64)
	if parseErr != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}

type groqRequest struct {
	Model      string        `json:"model"`
	Messages   []groqMessage `json:"messages"`
	Tools      []groqTool    `json:"tools,omitempty"`
	ToolChoice string        `json:"tool_choice,omitempty"`
	Stream     bool          `json:"stream,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqTool struct {
	Type     string       `json:"type"`
	Function groqFunction `json:"function"`
}

type groqFunction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

type groqToolCall struct {
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []groqToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}

type groqStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *GroqClient) buildRequest(req GenerateRequest, stream bool) groqRequest {
	msgs := make([]groqMessage, 0, 2)
	if len(req.System) > 0 {
		msgs = append(msgs, groqMessage{Role: "system", Content: strings.Join(req.System, "\n")})
	}
	msgs = append(msgs, groqMessage{Role: "user", Content: req.Text})

	out := groqRequest{Model: req.Model, Messages: msgs, Stream: stream}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, groqTool{
			Type: "function",
			Function: groqFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": t.Parameters.Properties,
					"required":   t.Parameters.Required,
				},
			},
		})
	}
	if len(out.Tools) > 0 {
		out.ToolChoice = "auto"
	}
	return out
}

func (c *GroqClient) post(ctx context.Context, key string, body groqRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}

func (c *GroqClient) GenerateContent(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	var result GenerateResult
	err := runWithKeys(ctx, c.keys, groqBaseDelay, c.logger, groqRetryDelay, func(ctx context.Context, key string) error {
		resp, err := c.post(ctx, key, c.buildRequest(req, false))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		var parsed groqResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}

		msg := parsed.Choices[0].Message
		result = GenerateResult{Text: msg.Content}
		for _, tc := range msg.ToolCalls {
			args := map[string]any{}
			if tc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					args = map[string]any{}
				}
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{Name: tc.Function.Name, Args: args})
		}
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}
	return result, nil
}

func (c *GroqClient) StreamContent(ctx context.Context, req GenerateRequest, emit func(chunk string) error) error {
	emitted := false
	err := runWithKeys(ctx, c.keys, groqBaseDelay, c.logger, groqRetryDelay, func(ctx context.Context, key string) error {
		resp, err := c.post(ctx, key, c.buildRequest(req, true))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}

			var chunk groqStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			emitted = true
			if err := emit(chunk.Choices[0].Delta.Content); err != nil {
				return emitError{err}
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if emitted || ctx.Err() != nil {
		return err
	}

	c.logger.Warn("stream failed before first chunk, falling back to full generation", "error", err)
	result, genErr := c.GenerateContent(ctx, req)
	if genErr != nil {
		return err
	}
	for _, chunk := range chunkWords(result.Text) {
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return nil
}
