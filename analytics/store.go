package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Store is the durable event store: append one event, range-scan many.
// No mutation or deletion is ever issued through this interface. No
// specific engine is mandated; SQLiteStore is the default and
// ClickHouseStore serves hosted deployments.
type Store interface {
	// InsertPageView appends one event. A zero ID is replaced with a
	// store-assigned ULID before the write; the assigned ID is written
	// back into e.
	InsertPageView(ctx context.Context, e *PageViewEvent) error

	// EventsInRange returns all events with viewed_at inside r (bounds
	// inclusive), ordered by viewed_at then ID ascending.
	EventsInRange(ctx context.Context, r DateRange) ([]PageViewEvent, error)

	// EventsByType returns events of one page type that carry a page_id,
	// inside r, ordered by viewed_at then ID ascending.
	EventsByType(ctx context.Context, pageType string, r DateRange) ([]PageViewEvent, error)

	Close() error
}

// SQLiteStore keeps page-view events in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the events database at path, ensures
// the data directory exists, and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open events db: %w", err)
	}
	// WAL lets dashboard range-scans run while visitors keep appending;
	// busy_timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	// viewed_at is stored as unix nanoseconds so range comparisons are
	// plain integer comparisons regardless of driver time formatting.
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS page_views (
			id TEXT PRIMARY KEY,
			page_type TEXT NOT NULL,
			page_id TEXT NOT NULL DEFAULT '',
			page_title TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			viewed_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_page_views_viewed_at ON page_views(viewed_at);
		CREATE INDEX IF NOT EXISTS idx_page_views_type ON page_views(page_type, viewed_at);
	`)
	return err
}

// InsertPageView appends one event to the page_views table.
func (s *SQLiteStore) InsertPageView(ctx context.Context, e *PageViewEvent) error {
	stampEvent(e)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_views (id, page_type, page_id, page_title, session_id, referrer, viewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PageType, e.PageID, e.PageTitle, e.SessionID, e.Referrer,
		e.ViewedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}
	return nil
}

// EventsInRange returns all events inside r.
func (s *SQLiteStore) EventsInRange(ctx context.Context, r DateRange) ([]PageViewEvent, error) {
	query, args := buildRangeQuery("", r)
	return s.queryEvents(ctx, query, args)
}

// EventsByType returns events of one page type that carry a page_id.
func (s *SQLiteStore) EventsByType(ctx context.Context, pageType string, r DateRange) ([]PageViewEvent, error) {
	query, args := buildRangeQuery(pageType, r)
	return s.queryEvents(ctx, query, args)
}

// buildRangeQuery assembles the range scan with only the bounds that are
// actually set, so an all-history query carries no WHERE clauses on time.
func buildRangeQuery(pageType string, r DateRange) (string, []any) {
	query := `SELECT id, page_type, page_id, page_title, session_id, referrer, viewed_at
		FROM page_views WHERE 1=1`
	var args []any
	if pageType != "" {
		query += ` AND page_type = ? AND page_id != ''`
		args = append(args, pageType)
	}
	if !r.From.IsZero() {
		query += ` AND viewed_at >= ?`
		args = append(args, r.From.UnixNano())
	}
	if !r.To.IsZero() {
		query += ` AND viewed_at <= ?`
		args = append(args, r.To.UnixNano())
	}
	query += ` ORDER BY viewed_at ASC, id ASC`
	return query, args
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args []any) ([]PageViewEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query page views: %w", err)
	}
	defer rows.Close()

	var events []PageViewEvent
	for rows.Next() {
		var e PageViewEvent
		var viewedAt int64
		if err := rows.Scan(&e.ID, &e.PageType, &e.PageID, &e.PageTitle,
			&e.SessionID, &e.Referrer, &viewedAt); err != nil {
			return nil, fmt.Errorf("scan page view: %w", err)
		}
		e.ViewedAt = time.Unix(0, viewedAt).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page views: %w", err)
	}
	return events, nil
}

// stampEvent fills in the store-assigned fields: a ULID event ID and a
// record-time timestamp when the caller left them empty.
func stampEvent(e *PageViewEvent) {
	if e.ViewedAt.IsZero() {
		e.ViewedAt = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
}
