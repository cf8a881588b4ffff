package services

import (
	"context"
	"log"
	"sync"
	"time"

	"brandforgeAPI/internal/types/generation"
)

// GenerationDispatcher runs generation batches off the request path. Each
// batch is an independent task; a render holds a headless browser open, so
// the worker count bounds concurrent browser contexts.
type GenerationDispatcher struct {
	service  *GenerationService
	workers  int
	jobQueue chan *generation.Event
	stopChan chan struct{}
	wg       sync.WaitGroup
}

const generationJobTimeout = 3 * time.Minute

func NewGenerationDispatcher(service *GenerationService) *GenerationDispatcher {
	dispatcher := &GenerationDispatcher{
		service:  service,
		workers:  3,
		jobQueue: make(chan *generation.Event, 50),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()
	return dispatcher
}

func (d *GenerationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *GenerationDispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.jobQueue:
			d.processJob(ev)
		case <-d.stopChan:
			return
		}
	}
}

func (d *GenerationDispatcher) processJob(ev *generation.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), generationJobTimeout)
	defer cancel()

	result, err := d.service.GenerateVisuals(ctx, ev)
	if err != nil {
		log.Printf("Generation batch for post %s failed: %v", ev.PostID, err)
		return
	}
	log.Printf("Generation batch for post %s complete: slogan=%s branding=%s",
		result.PostID, result.SloganURL, result.BrandingURL)
}

// Dispatch queues a generation batch. Returns false when the queue is full.
func (d *GenerationDispatcher) Dispatch(ev *generation.Event) bool {
	select {
	case d.jobQueue <- ev:
		log.Printf("Generation batch for post %s queued", ev.PostID)
		return true
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue generation batch for post %s: queue full", ev.PostID)
		return false
	}
}

// Stop drains the workers. In-flight jobs finish; queued jobs are dropped.
func (d *GenerationDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}
