package providers

import "context"

// ToolCall is a structured function invocation emitted by a tool-calling model.
// Args holds the already-parsed JSON arguments; malformed arguments decode to
// an empty map rather than failing the whole response.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolDef declares a callable function to the model.
type ToolDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Schema is the parameter schema of a tool: a flat object of named properties.
type Schema struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// GenerateRequest is built fresh per call and never mutated afterwards.
type GenerateRequest struct {
	Model  string
	Text   string
	System []string // ordered system instruction parts
	Tools  []ToolDef
}

type GenerateResult struct {
	Text      string
	ToolCalls []ToolCall
}

// Client is the uniform contract over a tool-calling text-generation backend
// family. Implementations own an ordered, deduplicated key list and handle
// per-key retry and key failover internally; a call fails only after every
// configured key is exhausted.
type Client interface {
	Name() string

	// Ready reports whether at least one API key is configured.
	Ready() bool

	// GenerateContent runs a single non-streaming generation. It never
	// returns a partial result: either the full response or an error.
	GenerateContent(ctx context.Context, req GenerateRequest) (GenerateResult, error)

	// StreamContent yields text deltas in backend arrival order by calling
	// emit for each chunk. Cancellation is cooperative: ctx is checked at
	// every chunk boundary, and a non-nil error from emit stops upstream
	// consumption immediately.
	StreamContent(ctx context.Context, req GenerateRequest, emit func(chunk string) error) error
}
