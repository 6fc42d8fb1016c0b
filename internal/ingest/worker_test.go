package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestProcessorRunsEnqueuedJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[uuid.UUID]bool)
	done := make(chan struct{}, 2)

	p := NewProcessor(2, func(ctx context.Context, id uuid.UUID) {
		mu.Lock()
		seen[id] = true
		mu.Unlock()
		done <- struct{}{}
	})

	a, b := uuid.New(), uuid.New()
	if !p.Enqueue(a) || !p.Enqueue(b) {
		t.Fatal("enqueue rejected with an empty queue")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if !seen[a] || !seen[b] {
		t.Errorf("jobs not processed: %v", seen)
	}
}

func TestProcessorEnqueueAfterClose(t *testing.T) {
	p := NewProcessor(1, func(ctx context.Context, id uuid.UUID) {})
	p.Close()

	if p.Enqueue(uuid.New()) {
		t.Error("Enqueue after Close must report false")
	}
	// Close again to confirm it stays idempotent.
	p.Close()
}
