package learning

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the event queue.
	// If full, events are dropped (non-blocking).
	eventQueueSize = 1000

	// batchFlushSize is the number of events that triggers an immediate flush.
	batchFlushSize = 10

	// flushInterval is how often pending events are written.
	flushInterval = 50 * time.Millisecond
)

// Tracker records search events in the background with non-blocking writes.
type Tracker struct {
	storage    storage.Storage
	eventQueue chan Event
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewTracker creates a tracker and starts its writer goroutine. A storage
// that fails to initialize disables tracking.
func NewTracker(s storage.Storage) *Tracker {
	t := &Tracker{
		storage:    s,
		eventQueue: make(chan Event, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    true,
		log:        logging.Component("tracker"),
	}

	if err := t.storage.Init(); err != nil {
		t.log.Warn().Err(err).Msg("event storage initialization failed, tracking disabled")
		t.enabled = false
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// TrackQuery queues a query event.
func (t *Tracker) TrackQuery(e storage.QueryEvent) {
	t.Track(Event{Kind: KindQuery, Query: e})
}

// TrackInteraction queues an interaction event.
func (t *Tracker) TrackInteraction(e storage.InteractionEvent) {
	t.Track(Event{Kind: KindInteraction, Interaction: e})
}

// Track queues an event. If the queue is full the event is dropped and a
// warning is logged.
func (t *Tracker) Track(event Event) {
	if !t.isEnabled() {
		return
	}

	select {
	case t.eventQueue <- event:
	default:
		t.log.Warn().Str("user_id", event.UserID()).Msg("event queue full, dropping event")
	}
}

// Stop flushes queued events and stops the writer.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// Disable disables tracking (events are ignored).
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// Enable enables tracking.
func (t *Tracker) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = true
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func (t *Tracker) isEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled && t.storage != nil
}

// processEvents batches queued events and flushes them on size, on a timer
// and on stop.
func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)

	for {
		select {
		case event := <-t.eventQueue:
			batch = append(batch, event)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-t.stopChan:
			// Drain whatever is still queued, then exit.
			for {
				select {
				case event := <-t.eventQueue:
					batch = append(batch, event)
					if len(batch) >= batchFlushSize {
						t.flush(batch)
						batch = batch[:0]
					}
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to storage in order.
func (t *Tracker) flush(events []Event) {
	ctx := context.Background()
	for _, event := range events {
		var err error
		switch event.Kind {
		case KindQuery:
			err = t.storage.RecordQuery(ctx, event.Query)
		case KindInteraction:
			err = t.storage.RecordInteraction(ctx, event.Interaction)
		}
		if err != nil {
			t.log.Warn().Err(err).Str("user_id", event.UserID()).Msg("failed to record event")
		}
	}
}

// QueueSize returns the number of events waiting to be written.
func (t *Tracker) QueueSize() int {
	return len(t.eventQueue)
}
