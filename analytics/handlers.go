package analytics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// queryTimeout bounds a dashboard read; the handler returns an error state
// instead of hanging when the store is slow.
const queryTimeout = 15 * time.Second

// Handler is the HTTP seam the dashboard and content pages depend on: one
// write endpoint (track) and two read endpoints (summary, per-type content
// analytics).
type Handler struct {
	store    Store
	recorder *Recorder
	sessions SessionProvider
	limiter  *ipLimiter
	log      zerolog.Logger
}

// NewHandler creates an analytics Handler. The track endpoint is
// rate-limited to 60 requests per IP per minute.
func NewHandler(store Store, recorder *Recorder, sessions SessionProvider, log zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		recorder: recorder,
		sessions: sessions,
		limiter:  newIPLimiter(60, time.Minute),
		log:      log,
	}
}

// TrackRequest is the body content pages send on mount.
type TrackRequest struct {
	PageType  string `json:"page_type"`
	PageID    string `json:"page_id"`
	PageTitle string `json:"page_title"`
	SessionID string `json:"session_id"`
	Referrer  string `json:"referrer"`
}

// Input limits for the track endpoint.
const (
	maxPageTypeLen  = 64
	maxPageIDLen    = 128
	maxPageTitleLen = 512
	maxSessionIDLen = 128
	maxReferrerLen  = 2048
)

func validateTrackRequest(req *TrackRequest) error {
	if req.PageType == "" {
		return errors.New("page_type is required")
	}
	if len(req.PageType) > maxPageTypeLen {
		return errors.New("page_type too long")
	}
	if len(req.PageID) > maxPageIDLen {
		return errors.New("page_id too long")
	}
	if len(req.PageTitle) > maxPageTitleLen {
		return errors.New("page_title too long")
	}
	if len(req.SessionID) > maxSessionIDLen {
		return errors.New("session_id too long")
	}
	if len(req.Referrer) > maxReferrerLen {
		return errors.New("referrer too long")
	}
	return nil
}

// Track records one page view. The response never reflects the write
// outcome: persistence happens in the background and failures are only
// logged, so a broken store can never slow a visitor-facing page.
func (h *Handler) Track(c echo.Context) error {
	if !h.limiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}

	var req TrackRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request")
	}
	if err := validateTrackRequest(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request")
	}

	// The client is trusted to generate and reuse its session token; the
	// cookie provider covers clients without storage.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.sessions.SessionID(c)
	}

	referrer := RefererHost(req.Referrer)
	if referrer == "" {
		referrer = RefererHost(c.Request().Referer())
	}

	h.recorder.Track(PageViewEvent{
		PageType:  req.PageType,
		PageID:    req.PageID,
		PageTitle: req.PageTitle,
		SessionID: sessionID,
		Referrer:  referrer,
	})
	return c.NoContent(http.StatusNoContent)
}

// GetSummary returns the aggregated dashboard summary as JSON.
func (h *Handler) GetSummary(c echo.Context) error {
	r, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx, cancel := contextWithTimeout(c.Request().Context())
	defer cancel()

	summary, err := GetSummary(ctx, h.store, r)
	if err != nil {
		if errors.Is(err, ErrInvalidDateRange) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error().Err(err).Msg("summary query failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, summary)
}

// GetContentAnalytics returns the ranked per-item list for one page type.
func (h *Handler) GetContentAnalytics(c echo.Context) error {
	pageType := c.Param("type")
	if pageType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "page type is required"})
	}
	r, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx, cancel := contextWithTimeout(c.Request().Context())
	defer cancel()

	ranked, err := GetContentAnalytics(ctx, h.store, pageType, r)
	if err != nil {
		if errors.Is(err, ErrInvalidDateRange) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error().Err(err).Str("page_type", pageType).Msg("content analytics query failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, ranked)
}

// Close releases handler resources (the limiter's cleanup goroutine).
func (h *Handler) Close() {
	h.limiter.close()
}

// RegisterRoutes attaches the analytics endpoints: the public track
// endpoint on publicGroup and the admin read API behind authMiddleware.
func (h *Handler) RegisterRoutes(e *echo.Echo, publicGroup *echo.Group, authMiddleware echo.MiddlewareFunc) {
	publicGroup.POST("/api/analytics/track", h.Track)

	admin := e.Group("/admin/analytics")
	admin.Use(authMiddleware)
	admin.GET("/api/summary", h.GetSummary)
	admin.GET("/api/content/:type", h.GetContentAnalytics)
}

// contextWithTimeout derives the read-path context: cancelled when the
// dashboard request goes away, bounded by queryTimeout either way.
func contextWithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, queryTimeout)
}

// parseDateRange reads optional from/to query parameters. Values are
// RFC3339 timestamps or plain dates; a date-only "to" covers its whole
// day so from=2026-01-01&to=2026-01-31 includes the 31st.
func parseDateRange(c echo.Context) (DateRange, error) {
	var r DateRange
	if v := c.QueryParam("from"); v != "" {
		t, _, err := parseStamp(v)
		if err != nil {
			return r, errors.New("invalid from parameter")
		}
		r.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, dateOnly, err := parseStamp(v)
		if err != nil {
			return r, errors.New("invalid to parameter")
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		r.To = t
	}
	return r, nil
}

func parseStamp(v string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	if t, err = time.Parse("2006-01-02", v); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}
