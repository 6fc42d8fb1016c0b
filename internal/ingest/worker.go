package ingest

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Processor is the background worker pool that runs upload jobs. Each upload
// is one independent unit of work; the callback owns the upload's state
// machine and must drive it to a terminal state even when the context is
// cancelled.
type Processor struct {
	jobs   chan uuid.UUID
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewProcessor starts the pool. run is invoked once per enqueued upload.
func NewProcessor(workers int, run func(ctx context.Context, uploadID uuid.UUID)) *Processor {
	if workers <= 0 {
		workers = 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor{
		jobs:   make(chan uuid.UUID, 256),
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for id := range p.jobs {
				run(ctx, id)
			}
		}()
	}

	return p
}

// Enqueue submits an upload for background processing. Returns false when the
// queue is full or the pool has shut down; the caller should surface
// backpressure rather than block a request goroutine.
func (p *Processor) Enqueue(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Printf("[ingest] pool closed, rejecting upload %s", id)
		return false
	}

	select {
	case p.jobs <- id:
		return true
	default:
		log.Printf("[ingest] job queue full, rejecting upload %s", id)
		return false
	}
}

// Close cancels in-flight jobs and waits for the workers to drain. Safe to
// call more than once; Enqueue after Close reports false.
func (p *Processor) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
