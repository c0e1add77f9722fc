package memory

import "context"

// IDs scope memory operations to a user and optionally a session.
type IDs struct {
	UserID    string
	SessionID string
}

// Message is one conversation message to remember.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the long-term memory backend. Implementations are best-effort:
// Search returns ready-to-inject context lines, Add persists conversation
// turns or extracted facts.
type Store interface {
	Search(ctx context.Context, query string, ids IDs) ([]string, error)
	Add(ctx context.Context, msgs []Message, ids IDs, metadata map[string]any) error
}
