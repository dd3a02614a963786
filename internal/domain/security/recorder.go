package security

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const recordTimeout = 5 * time.Second

// Recorder accepts security events without blocking the caller on storage
type Recorder interface {
	Record(ctx context.Context, event *Event)
}

// AsyncRecorder writes each event in its own goroutine. Write failures are
// logged and dropped; Flush waits for writes still in flight.
type AsyncRecorder struct {
	repo Repository
	wg   sync.WaitGroup
}

// NewAsyncRecorder creates an AsyncRecorder backed by repo
func NewAsyncRecorder(repo Repository) *AsyncRecorder {
	return &AsyncRecorder{repo: repo}
}

// Record queues event for storage. Cancellation of ctx does not abort the write.
func (r *AsyncRecorder) Record(ctx context.Context, event *Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()

		if err := r.repo.Create(writeCtx, event); err != nil {
			slog.Warn("Failed to write security event",
				"error", err,
				"email", event.Email,
				"event_type", event.EventType,
			)
		}
	}()
}

// Flush blocks until every queued event has been written or dropped
func (r *AsyncRecorder) Flush() {
	r.wg.Wait()
}
