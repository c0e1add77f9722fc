package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

const geminiBaseDelay = 1000 * time.Millisecond

// GeminiClient talks to the Gemini API through the official SDK. It carries
// an ordered list of API keys and fails over between them: a fresh SDK client
// is built per key per attempt so that each key is tried in isolation.
type GeminiClient struct {
	keys   []string
	logger *slog.Logger
}

func NewGemini(keys []string, logger *slog.Logger) *GeminiClient {
	return &GeminiClient{
		keys:   dedupeKeys(keys),
		logger: logger.With("provider", "gemini"),
	}
}

func (c *GeminiClient) Name() string { return "gemini" }
func (c *GeminiClient) Ready() bool  { return len(c.keys) > 0 }

func (c *GeminiClient) GenerateContent(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	var result GenerateResult
	err := runWithKeys(ctx, c.keys, geminiBaseDelay, c.logger, nil, func(ctx context.Context, key string) error {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return fmt.Errorf("creating gemini client: %w", err)
		}

		resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Text), buildGeminiConfig(req))
		if err != nil {
			return fmt.Errorf("gemini generate: %w", err)
		}

		result = GenerateResult{Text: resp.Text()}
		for _, fc := range resp.FunctionCalls() {
			args := fc.Args
			if args == nil {
				args = map[string]any{}
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{Name: fc.Name, Args: args})
		}
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}
	return result, nil
}

func (c *GeminiClient) StreamContent(ctx context.Context, req GenerateRequest, emit func(chunk string) error) error {
	emitted := false
	err := runWithKeys(ctx, c.keys, geminiBaseDelay, c.logger, nil, func(ctx context.Context, key string) error {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return fmt.Errorf("creating gemini client: %w", err)
		}

		for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, genai.Text(req.Text), buildGeminiConfig(req)) {
			if err != nil {
				return fmt.Errorf("gemini stream: %w", err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			chunk := resp.Text()
			if chunk == "" {
				continue
			}
			emitted = true
			if err := emit(chunk); err != nil {
				return emitError{err}
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if emitted || ctx.Err() != nil {
		return err
	}

	// Nothing reached the consumer yet, so a full response can stand in for
	// the stream without duplicating output.
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

// buildGeminiConfig renders system parts and tool declarations. Tool
// parameters are declared as strings across the board; callers parse numeric
// arguments themselves, which keeps the declarations uniform between backends.
func buildGeminiConfig(req GenerateRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if len(req.System) > 0 {
		parts := make([]*genai.Part, 0, len(req.System))
		for _, s := range req.System {
			parts = append(parts, &genai.Part{Text: s})
		}
		cfg.SystemInstruction = &genai.Content{Parts: parts}
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			props := make(map[string]*genai.Schema, len(t.Parameters.Properties))
			for name, p := range t.Parameters.Properties {
				props[name] = &genai.Schema{
					Type:        genai.TypeString,
					Description: p.Description,
				}
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: props,
					Required:   t.Parameters.Required,
				},
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return cfg
}
