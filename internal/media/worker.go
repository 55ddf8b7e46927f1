package media

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

const defaultQueueDepth = 64

// Worker runs derivation in the background, one object at a time, so upload
// responses never wait on transcoding. Per-object failures are logged and
// isolated; one bad file never aborts its batch siblings.
type Worker struct {
	deriver *Deriver
	repo    metadataStore
	jobs    chan uuid.UUID

	stopOnce sync.Once
	done     chan struct{}
}

// NewWorker builds a derivation worker with a bounded queue.
func NewWorker(deriver *Deriver, repo metadataStore) *Worker {
	return &Worker{
		deriver: deriver,
		repo:    repo,
		jobs:    make(chan uuid.UUID, defaultQueueDepth),
		done:    make(chan struct{}),
	}
}

// Start launches the worker loop. It runs until ctx is cancelled or Stop is
// called.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case id, ok := <-w.jobs:
				if !ok {
					return
				}
				w.process(ctx, id)
			}
		}
	}()
}

// Enqueue schedules derivation for an uploaded object. When the queue is
// full the job is dropped; the on-demand thumbnail path regenerates later.
func (w *Worker) Enqueue(id uuid.UUID) {
	select {
	case w.jobs <- id:
	default:
		log.Printf("media: derivation queue full, dropping %s", id)
	}
}

// Stop terminates the worker loop after the current job finishes.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.jobs) })
	<-w.done
}

func (w *Worker) process(ctx context.Context, id uuid.UUID) {
	original, err := w.repo.Get(ctx, id)
	if err != nil {
		// deleted before we got to it
		log.Printf("media: derivation skipped for %s: %v", id, err)
		return
	}

	if _, err := w.deriver.Derive(ctx, original); err != nil {
		if err == ErrNotDerivable {
			return
		}
		log.Printf("media: derivation failed for %s: %v", id, err)
	}
}
