package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

type slowStore struct {
	mu      sync.Mutex
	added   [][]Message
	release chan struct{}
}

func (s *slowStore) Search(ctx context.Context, query string, ids IDs) ([]string, error) {
	return nil, nil
}

func (s *slowStore) Add(ctx context.Context, msgs []Message, ids IDs, metadata map[string]any) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	s.added = append(s.added, msgs)
	s.mu.Unlock()
	return nil
}

func (s *slowStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.added)
}

func TestWriterDeliversInBackground(t *testing.T) {
	store := &slowStore{}
	w := NewWriter(store, testLogger(), 4)

	ok := w.Enqueue([]Message{{Role: "user", Content: "hi"}}, IDs{UserID: "u1"}, nil)
	if !ok {
		t.Fatal("enqueue should accept")
	}
	w.Close()
	if store.count() != 1 {
		t.Errorf("store got %d writes, want 1", store.count())
	}
}

func TestWriterDropsWhenFull(t *testing.T) {
	store := &slowStore{release: make(chan struct{})}
	w := NewWriter(store, testLogger(), 1)

	msg := []Message{{Role: "user", Content: "x"}}
	ids := IDs{UserID: "u1"}

	// First job occupies the worker, second fills the buffer; give the
	// worker a moment to pick the first one up.
	w.Enqueue(msg, ids, nil)
	time.Sleep(10 * time.Millisecond)
	w.Enqueue(msg, ids, nil)

	if w.Enqueue(msg, ids, nil) {
		t.Error("full queue must drop, not block")
	}
	if w.Dropped() == 0 {
		t.Error("drop counter should advance")
	}

	close(store.release)
	w.Close()
}

func TestWriterRejectsUnusableJobs(t *testing.T) {
	w := NewWriter(&slowStore{}, testLogger(), 4)
	defer w.Close()

	if w.Enqueue(nil, IDs{UserID: "u"}, nil) {
		t.Error("empty messages must be rejected")
	}
	if w.Enqueue([]Message{{Role: "user", Content: "x"}}, IDs{}, nil) {
		t.Error("missing user id must be rejected")
	}
}
