// Package analytics records page-view events and computes the aggregated
// summaries behind the admin dashboard: totals, per-type breakdowns,
// top-content rankings, daily trends and referrer sources over arbitrary
// date windows.
package analytics

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Recognized page types. The set is open: an unrecognized value is accepted
// and carried through aggregation as an opaque string.
const (
	PageTypeHome     = "home"
	PageTypeShop     = "shop"
	PageTypeProduct  = "product"
	PageTypeBlog     = "blog"
	PageTypeDIY      = "diy"
	PageTypeWorkshop = "workshop"
	PageTypeAbout    = "about"
	PageTypeContact  = "contact"
)

// DirectBucket is the referrer bucket for views without a referrer.
const DirectBucket = "Direct"

// ErrInvalidDateRange is returned when a range has from after to.
var ErrInvalidDateRange = errors.New("analytics: date range start is after end")

// PageViewEvent is one recorded instance of a visitor viewing one page.
// Events are append-only: once stored they are never mutated or deleted
// by this package.
type PageViewEvent struct {
	ID        string    `json:"id"`
	PageType  string    `json:"page_type"`
	PageID    string    `json:"page_id,omitempty"`
	PageTitle string    `json:"page_title,omitempty"`
	SessionID string    `json:"session_id"`
	Referrer  string    `json:"referrer,omitempty"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// DateRange bounds a query window. A zero From or To leaves that side
// unbounded; the all-zero range means all recorded history.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Validate rejects ranges whose start lies after their end. Unbounded
// sides are always valid.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidDateRange,
			r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t falls inside the range, bounds inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Summary holds the aggregated dashboard numbers for one date window.
// It is computed on demand and never persisted.
type Summary struct {
	TotalViews        int            `json:"total_views"`
	UniqueSessions    int            `json:"unique_sessions"`
	PageTypeBreakdown map[string]int `json:"page_type_breakdown"`
	TopContent        []TopContent   `json:"top_content"`
	DailyTrends       map[string]int `json:"daily_trends"`
	ReferrerBreakdown map[string]int `json:"referrer_breakdown"`
}

// TopContent is one ranked entry in Summary.TopContent, keyed by the
// (page_type, page_id) pair.
type TopContent struct {
	PageType string `json:"page_type"`
	PageID   string `json:"page_id"`
	Title    string `json:"title"`
	Views    int    `json:"views"`
}

// ContentAnalytics holds per-item numbers for one content type.
type ContentAnalytics struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TotalViews    int    `json:"total_views"`
	UniqueViewers int    `json:"unique_viewers"`
}

// referrerBucket maps a stored referrer value to its breakdown bucket.
// Missing referrers coalesce into the Direct bucket; everything else is
// grouped by its literal value.
func referrerBucket(ref string) string {
	if ref == "" {
		return DirectBucket
	}
	return ref
}

// dayKey returns the UTC calendar-day key used for daily trends.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// RefererHost extracts the host from a raw referrer URL, so the store
// keeps "instagram.com" rather than a full deep link. A value that is not
// a URL is kept as-is; an empty value stays empty (direct traffic).
func RefererHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

// NewToken returns a random, URL-safe session token.
func NewToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived token so callers always get something usable.
		return "s-" + time.Now().UTC().Format("20060102150405.000000000")
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
