package analytics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// memStore collects inserted events in memory.
type memStore struct {
	mu     sync.Mutex
	events []PageViewEvent
	err    error
}

func (m *memStore) InsertPageView(_ context.Context, e *PageViewEvent) error {
	if m.err != nil {
		return m.err
	}
	stampEvent(e)
	m.mu.Lock()
	m.events = append(m.events, *e)
	m.mu.Unlock()
	return nil
}

func (m *memStore) EventsInRange(_ context.Context, r DateRange) ([]PageViewEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PageViewEvent
	for _, e := range m.events {
		if r.Contains(e.ViewedAt) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) EventsByType(_ context.Context, pageType string, r DateRange) ([]PageViewEvent, error) {
	events, _ := m.EventsInRange(context.Background(), r)
	var out []PageViewEvent
	for _, e := range events {
		if e.PageType == pageType && e.PageID != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestRecorderWritesInBackground(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, zerolog.Nop())

	rec.Track(PageViewEvent{PageType: "blog", PageID: "42", SessionID: "s1"})
	rec.Track(PageViewEvent{PageType: "home", SessionID: "s1"})
	rec.Close()

	if got := store.count(); got != 2 {
		t.Errorf("recorded %d events, want 2", got)
	}
	for _, e := range store.events {
		if e.ID == "" || e.ViewedAt.IsZero() {
			t.Errorf("event missing store-assigned fields: %+v", e)
		}
	}
}

func TestRecorderSwallowsAndLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	store := &memStore{err: errors.New("store down")}
	rec := NewRecorder(store, zerolog.New(&buf))

	// Must not panic and must not surface the error anywhere but the log.
	rec.Track(PageViewEvent{PageType: "blog", PageID: "42", SessionID: "s1"})
	rec.Close()

	if store.count() != 0 {
		t.Error("no event should have been stored")
	}
	if !strings.Contains(buf.String(), "page view dropped") {
		t.Errorf("failure not logged for operators: %q", buf.String())
	}
}
