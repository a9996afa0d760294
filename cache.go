package atelier

import (
	"database/sql"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a requested content item does not exist.
var ErrNotFound = sql.ErrNoRows

type kindEntry struct {
	items   []ContentItem
	tags    []string
	fetched time.Time
}

// ContentCache is an in-memory cache of published content with TTL,
// loaded lazily per kind.
type ContentCache struct {
	mu    sync.RWMutex
	kinds map[string]*kindEntry
	ttl   time.Duration
	store *Store
}

// NewContentCache creates a ContentCache backed by the given Store.
func NewContentCache(s *Store, ttl time.Duration) *ContentCache {
	return &ContentCache{store: s, ttl: ttl, kinds: make(map[string]*kindEntry)}
}

func (e *kindEntry) valid(ttl time.Duration) bool {
	return e != nil && e.items != nil && time.Since(e.fetched) < ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ContentCache) Invalidate() {
	c.mu.Lock()
	c.kinds = make(map[string]*kindEntry)
	c.mu.Unlock()
}

// ensureLoaded returns cached items and tags for a kind after ensuring the
// entry is fresh. It tries a read lock first; only takes a write lock if a
// reload is needed.
func (c *ContentCache) ensureLoaded(kind string) ([]ContentItem, []string, error) {
	c.mu.RLock()
	if e := c.kinds[kind]; e.valid(c.ttl) {
		items, tags := e.items, e.tags
		c.mu.RUnlock()
		return items, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.kinds[kind]; e.valid(c.ttl) {
		return e.items, e.tags, nil
	}
	items, err := c.store.ListItems(kind, "")
	if err != nil {
		return nil, nil, err
	}
	tags, err := c.store.ListTags(kind)
	if err != nil {
		return nil, nil, err
	}
	c.kinds[kind] = &kindEntry{items: items, tags: tags, fetched: time.Now()}
	return items, tags, nil
}

// ListItems returns published items of a kind, optionally filtered by tag.
func (c *ContentCache) ListItems(kind, tag string) ([]ContentItem, error) {
	items, _, err := c.ensureLoaded(kind)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return items, nil
	}
	normalized := normalizeTag(tag)
	var filtered []ContentItem
	for _, item := range items {
		for _, t := range item.Tags {
			if normalizeTag(t) == normalized {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered, nil
}

// ListTags returns all unique tags from published items of a kind.
func (c *ContentCache) ListTags(kind string) ([]string, error) {
	_, tags, err := c.ensureLoaded(kind)
	return tags, err
}

// GetItem returns a single published item by kind and slug from the cache.
func (c *ContentCache) GetItem(kind, slug string) (ContentItem, error) {
	items, _, err := c.ensureLoaded(kind)
	if err != nil {
		return ContentItem{}, err
	}
	for _, item := range items {
		if item.Slug == slug {
			return item, nil
		}
	}
	return ContentItem{}, ErrNotFound
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
