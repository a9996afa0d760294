package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseConfig holds connection settings for a hosted event store.
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ClickHouseStore keeps page-view events in a ClickHouse table, for sites
// whose traffic outgrows a local SQLite file. Expected table:
//
//	CREATE TABLE page_views (
//	    id         String,
//	    page_type  String,
//	    page_id    String,
//	    page_title String,
//	    session_id String,
//	    referrer   String,
//	    viewed_at  DateTime64(9, 'UTC')
//	) ENGINE = MergeTree ORDER BY viewed_at;
type ClickHouseStore struct {
	conn clickhouse.Conn
}

// NewClickHouseStore connects over the native TCP protocol and pings the
// server before returning.
func NewClickHouseStore(cfg ClickHouseConfig) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseStore{conn: conn}, nil
}

// Close closes the connection pool.
func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

// InsertPageView appends one event.
func (s *ClickHouseStore) InsertPageView(ctx context.Context, e *PageViewEvent) error {
	stampEvent(e)
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO page_views (id, page_type, page_id, page_title, session_id, referrer, viewed_at)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	if err := batch.Append(e.ID, e.PageType, e.PageID, e.PageTitle,
		e.SessionID, e.Referrer, e.ViewedAt); err != nil {
		return fmt.Errorf("append page view: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send page view: %w", err)
	}
	return nil
}

// EventsInRange returns all events inside r.
func (s *ClickHouseStore) EventsInRange(ctx context.Context, r DateRange) ([]PageViewEvent, error) {
	query, args := buildCHRangeQuery("", r)
	return s.queryEvents(ctx, query, args)
}

// EventsByType returns events of one page type that carry a page_id.
func (s *ClickHouseStore) EventsByType(ctx context.Context, pageType string, r DateRange) ([]PageViewEvent, error) {
	query, args := buildCHRangeQuery(pageType, r)
	return s.queryEvents(ctx, query, args)
}

func buildCHRangeQuery(pageType string, r DateRange) (string, []any) {
	query := `SELECT id, page_type, page_id, page_title, session_id, referrer, viewed_at
		FROM page_views WHERE 1=1`
	var args []any
	if pageType != "" {
		query += ` AND page_type = ? AND page_id != ''`
		args = append(args, pageType)
	}
	if !r.From.IsZero() {
		query += ` AND viewed_at >= ?`
		args = append(args, r.From)
	}
	if !r.To.IsZero() {
		query += ` AND viewed_at <= ?`
		args = append(args, r.To)
	}
	query += ` ORDER BY viewed_at ASC, id ASC`
	return query, args
}

func (s *ClickHouseStore) queryEvents(ctx context.Context, query string, args []any) ([]PageViewEvent, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query page views: %w", err)
	}
	defer rows.Close()

	var events []PageViewEvent
	for rows.Next() {
		var e PageViewEvent
		if err := rows.Scan(&e.ID, &e.PageType, &e.PageID, &e.PageTitle,
			&e.SessionID, &e.Referrer, &e.ViewedAt); err != nil {
			return nil, fmt.Errorf("scan page view: %w", err)
		}
		e.ViewedAt = e.ViewedAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page views: %w", err)
	}
	return events, nil
}
