package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func setupHandler(t *testing.T) (*Handler, *memStore, *echo.Echo) {
	t.Helper()
	store := &memStore{}
	rec := NewRecorder(store, zerolog.Nop())
	sessions := NewCookieSessionProvider([]byte("test-secret"), false, zerolog.Nop())
	h := NewHandler(store, rec, sessions, zerolog.Nop())
	t.Cleanup(func() {
		rec.Close()
		h.Close()
	})
	return h, store, echo.New()
}

func trackRequest(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/track", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rw := httptest.NewRecorder()
	return e.NewContext(req, rw), rw
}

func TestTrackRecordsEvent(t *testing.T) {
	h, store, e := setupHandler(t)

	c, rw := trackRequest(e, `{
		"page_type": "blog",
		"page_id": "42",
		"page_title": "Capsule Wardrobe",
		"session_id": "sess-abc",
		"referrer": "https://instagram.com/p/abc123"
	}`)
	if err := h.Track(c); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if rw.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rw.Code)
	}

	h.recorder.Close()
	if store.count() != 1 {
		t.Fatalf("recorded %d events, want 1", store.count())
	}
	got := store.events[0]
	if got.PageType != "blog" || got.PageID != "42" || got.SessionID != "sess-abc" {
		t.Errorf("event = %+v", got)
	}
	if got.Referrer != "instagram.com" {
		t.Errorf("Referrer = %q, want host only", got.Referrer)
	}
}

func TestTrackAssignsSessionWhenClientHasNone(t *testing.T) {
	h, store, e := setupHandler(t)

	c, rw := trackRequest(e, `{"page_type": "home"}`)
	if err := h.Track(c); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if rw.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rw.Code)
	}

	h.recorder.Close()
	if store.count() != 1 {
		t.Fatalf("recorded %d events, want 1", store.count())
	}
	if store.events[0].SessionID == "" {
		t.Error("handler should fall back to a provider-assigned session token")
	}
	if store.events[0].Referrer != "" {
		t.Errorf("Referrer = %q, want empty (direct)", store.events[0].Referrer)
	}
}

func TestTrackRejectsMissingPageType(t *testing.T) {
	h, store, e := setupHandler(t)

	c, rw := trackRequest(e, `{"page_id": "42"}`)
	if err := h.Track(c); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if rw.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rw.Code)
	}
	h.recorder.Close()
	if store.count() != 0 {
		t.Error("invalid request should not record an event")
	}
}

func TestSummaryEndpoint(t *testing.T) {
	h, store, e := setupHandler(t)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store.events = []PageViewEvent{
		{ID: "1", PageType: "blog", SessionID: "s1", ViewedAt: at},
		{ID: "2", PageType: "blog", SessionID: "s2", ViewedAt: at.Add(time.Minute)},
		{ID: "3", PageType: "shop", SessionID: "s1", ViewedAt: at.Add(2 * time.Minute)},
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/analytics/api/summary", nil)
	rw := httptest.NewRecorder()
	if err := h.GetSummary(e.NewContext(req, rw)); err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rw.Code, rw.Body.String())
	}

	var sum Summary
	if err := json.Unmarshal(rw.Body.Bytes(), &sum); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if sum.TotalViews != 3 || sum.UniqueSessions != 2 {
		t.Errorf("summary = %+v, want 3 views / 2 sessions", sum)
	}
}

func TestSummaryEndpointDateFilter(t *testing.T) {
	h, store, e := setupHandler(t)

	store.events = []PageViewEvent{
		{ID: "1", PageType: "blog", SessionID: "s1",
			ViewedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
		{ID: "2", PageType: "blog", SessionID: "s1",
			ViewedAt: time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/admin/analytics/api/summary?from=2026-03-09&to=2026-03-10", nil)
	rw := httptest.NewRecorder()
	if err := h.GetSummary(e.NewContext(req, rw)); err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}

	var sum Summary
	if err := json.Unmarshal(rw.Body.Bytes(), &sum); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	// A date-only "to" covers the whole day, so the 09:00 event counts.
	if sum.TotalViews != 1 {
		t.Errorf("TotalViews = %d, want 1", sum.TotalViews)
	}
}

func TestSummaryEndpointInvertedRange(t *testing.T) {
	h, _, e := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet,
		"/admin/analytics/api/summary?from=2026-03-10&to=2026-03-01", nil)
	rw := httptest.NewRecorder()
	if err := h.GetSummary(e.NewContext(req, rw)); err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if rw.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for inverted range", rw.Code)
	}
}

func TestContentAnalyticsEndpoint(t *testing.T) {
	h, store, e := setupHandler(t)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store.events = []PageViewEvent{
		{ID: "1", PageType: "diy", PageID: "7", PageTitle: "Visible Mending", SessionID: "s1", ViewedAt: at},
		{ID: "2", PageType: "diy", PageID: "7", PageTitle: "Visible Mending", SessionID: "s2", ViewedAt: at},
		{ID: "3", PageType: "blog", PageID: "42", SessionID: "s1", ViewedAt: at},
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/analytics/api/content/diy", nil)
	rw := httptest.NewRecorder()
	c := e.NewContext(req, rw)
	c.SetParamNames("type")
	c.SetParamValues("diy")
	if err := h.GetContentAnalytics(c); err != nil {
		t.Fatalf("GetContentAnalytics failed: %v", err)
	}
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rw.Code, rw.Body.String())
	}

	var ranked []ContentAnalytics
	if err := json.Unmarshal(rw.Body.Bytes(), &ranked); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(ranked) != 1 || ranked[0].ID != "7" || ranked[0].TotalViews != 2 {
		t.Errorf("ranked = %+v, want one diy entry with 2 views", ranked)
	}
}

func TestCookieSessionProviderIsStable(t *testing.T) {
	p := NewCookieSessionProvider([]byte("test-secret"), false, zerolog.Nop())
	e := echo.New()

	req1 := httptest.NewRequest(http.MethodPost, "/api/analytics/track", nil)
	rw1 := httptest.NewRecorder()
	id1 := p.SessionID(e.NewContext(req1, rw1))
	if id1 == "" {
		t.Fatal("expected a session token")
	}

	// Replay the cookie: the same token must come back.
	req2 := httptest.NewRequest(http.MethodPost, "/api/analytics/track", nil)
	for _, cookie := range rw1.Result().Cookies() {
		req2.AddCookie(cookie)
	}
	id2 := p.SessionID(e.NewContext(req2, httptest.NewRecorder()))
	if id2 != id1 {
		t.Errorf("token changed across requests: %q then %q", id1, id2)
	}

	// Without the cookie a fresh token is minted.
	req3 := httptest.NewRequest(http.MethodPost, "/api/analytics/track", nil)
	id3 := p.SessionID(e.NewContext(req3, httptest.NewRecorder()))
	if id3 == id1 {
		t.Error("distinct browsing sessions should get distinct tokens")
	}
}
