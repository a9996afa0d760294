package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// writeTimeout bounds a single background event write.
const writeTimeout = 5 * time.Second

// Recorder publishes one page-view event per content view. Writes are
// fire-and-forget: the caller never waits on the store and never sees the
// outcome. A failed write is logged for operators and dropped; there are
// no retries.
type Recorder struct {
	store Store
	log   zerolog.Logger
	wg    sync.WaitGroup
}

// NewRecorder creates a Recorder writing to store and reporting failures
// to log.
func NewRecorder(store Store, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Track appends one event in the background and returns immediately.
// The record timestamp is assigned here when the event carries none.
func (r *Recorder) Track(e PageViewEvent) {
	if e.ViewedAt.IsZero() {
		e.ViewedAt = time.Now().UTC()
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.store.InsertPageView(ctx, &e); err != nil {
			r.log.Error().
				Err(err).
				Str("page_type", e.PageType).
				Str("page_id", e.PageID).
				Msg("page view dropped")
		}
	}()
}

// Close waits for in-flight writes to finish. Call on shutdown.
func (r *Recorder) Close() {
	r.wg.Wait()
}
