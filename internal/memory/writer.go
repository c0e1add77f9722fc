package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultWriterBuffer = 64

type writeJob struct {
	msgs     []Message
	ids      IDs
	metadata map[string]any
}

// Writer decouples memory persistence from the request path. Enqueue never
// blocks: when the buffer is full the job is dropped and counted, because a
// slow memory API must not back-pressure live searches.
type Writer struct {
	store  Store
	queue  chan writeJob
	wg     sync.WaitGroup
	logger *slog.Logger

	mu      sync.Mutex
	dropped int
}

func NewWriter(store Store, logger *slog.Logger, buffer int) *Writer {
	if buffer <= 0 {
		buffer = defaultWriterBuffer
	}
	w := &Writer{
		store:  store,
		queue:  make(chan writeJob, buffer),
		logger: logger.With("component", "memory_writer"),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Writer) run() {
	defer w.wg.Done()
	for job := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := w.store.Add(ctx, job.msgs, job.ids, job.metadata); err != nil {
			w.logger.Warn("memory write failed", "user", job.ids.UserID, "error", err)
		}
		cancel()
	}
}

// Enqueue schedules a write. Returns false when the job was dropped.
func (w *Writer) Enqueue(msgs []Message, ids IDs, metadata map[string]any) bool {
	if w.store == nil || ids.UserID == "" || len(msgs) == 0 {
		return false
	}
	select {
	case w.queue <- writeJob{msgs: msgs, ids: ids, metadata: metadata}:
		return true
	default:
		w.mu.Lock()
		w.dropped++
		n := w.dropped
		w.mu.Unlock()
		w.logger.Warn("memory write queue full, dropping", "dropped_total", n)
		return false
	}
}

// Dropped reports how many jobs were discarded due to a full queue.
func (w *Writer) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close drains outstanding jobs and stops the worker.
func (w *Writer) Close() {
	close(w.queue)
	w.wg.Wait()
}
