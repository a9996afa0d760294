package atelier

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database and provides CRUD operations for content
// items, contact messages and uploaded images.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent read/write access, set a busy timeout
	// so writers wait instead of returning SQLITE_BUSY immediately, and tune
	// performance: synchronous=NORMAL is safe with WAL and avoids an fsync
	// per transaction; larger cache and mmap reduce disk I/O.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS content (
    kind TEXT NOT NULL,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    date TEXT NOT NULL,
    tags TEXT NOT NULL,
    summary TEXT NOT NULL,
    body TEXT NOT NULL,
    price_cents INTEGER NOT NULL DEFAULT 0,
    published INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (kind, slug)
);
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    body TEXT NOT NULL,
    received_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	return err
}

func scanItem(scan func(dest ...any) error) (ContentItem, error) {
	var kind, slug, title, date, tags, summary, body string
	var priceCents int64
	var published int
	if err := scan(&kind, &slug, &title, &date, &tags, &summary, &body, &priceCents, &published); err != nil {
		return ContentItem{}, err
	}
	return ContentItem{
		Kind:       kind,
		Slug:       slug,
		Title:      title,
		Date:       date,
		Tags:       ParseTags(tags),
		Summary:    summary,
		Body:       body,
		PriceCents: priceCents,
		Link:       sectionPath(kind) + "/" + slug,
		Published:  published == 1,
	}, nil
}

const itemColumns = `kind, slug, title, date, tags, summary, body, price_cents, published`

// ListItems returns all published items of a kind ordered by date descending.
// If tag is non-empty, results are filtered to items containing that tag.
func (s *Store) ListItems(kind, tag string) ([]ContentItem, error) {
	var rows *sql.Rows
	var err error
	if tag == "" {
		rows, err = s.db.Query(`SELECT `+itemColumns+` FROM content WHERE kind = ? AND published = 1 ORDER BY date DESC`, kind)
	} else {
		normalizedTag := strings.ToLower(strings.TrimSpace(tag))
		rows, err = s.db.Query(`SELECT `+itemColumns+` FROM content WHERE kind = ? AND published = 1 AND instr(lower(tags), ',' || ? || ',') > 0 ORDER BY date DESC`, kind, normalizedTag)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListAllItems returns every item of a kind (published and drafts) ordered
// by date descending.
func (s *Store) ListAllItems(kind string) ([]ContentItem, error) {
	rows, err := s.db.Query(`SELECT `+itemColumns+` FROM content WHERE kind = ? ORDER BY date DESC`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItem returns a single published item by kind and slug.
func (s *Store) GetItem(kind, slug string) (ContentItem, error) {
	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM content WHERE kind = ? AND slug = ? AND published = 1`, kind, slug)
	return scanItem(row.Scan)
}

// GetItemAny returns an item by kind and slug regardless of published
// status (for admin).
func (s *Store) GetItemAny(kind, slug string) (ContentItem, error) {
	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM content WHERE kind = ? AND slug = ?`, kind, slug)
	return scanItem(row.Scan)
}

// SaveItem upserts a content item. Tags are normalized to lowercase.
func (s *Store) SaveItem(item ContentItem) error {
	normalizedTags := make([]string, len(item.Tags))
	for i, t := range item.Tags {
		normalizedTags[i] = strings.ToLower(strings.TrimSpace(t))
	}
	tagString := "," + strings.Join(normalizedTags, ",") + ","
	published := 0
	if item.Published {
		published = 1
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO content (kind, slug, title, date, tags, summary, body, price_cents, published) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Kind, item.Slug, item.Title, item.Date, tagString, item.Summary, item.Body, item.PriceCents, published)
	return err
}

// DeleteItem removes an item by kind and slug.
func (s *Store) DeleteItem(kind, slug string) error {
	_, err := s.db.Exec(`DELETE FROM content WHERE kind = ? AND slug = ?`, kind, slug)
	return err
}

// ListTags returns a sorted, deduplicated slice of all tags from published
// items of a kind.
func (s *Store) ListTags(kind string) ([]string, error) {
	rows, err := s.db.Query(`SELECT tags FROM content WHERE kind = ? AND published = 1`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range ParseTags(tags) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var result []string
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// SaveMessage stores a contact-form submission and returns its id.
func (s *Store) SaveMessage(m ContactMessage) (int64, error) {
	if m.ReceivedAt == "" {
		m.ReceivedAt = time.Now().UTC().Format(time.RFC3339)
	}
	res, err := s.db.Exec(`INSERT INTO messages (topic, name, email, body, received_at) VALUES (?, ?, ?, ?, ?)`,
		m.Topic, m.Name, m.Email, m.Body, m.ReceivedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListMessages returns contact messages newest first. If topic is non-empty,
// results are filtered to that topic.
func (s *Store) ListMessages(topic string) ([]ContactMessage, error) {
	var rows *sql.Rows
	var err error
	if topic == "" {
		rows, err = s.db.Query(`SELECT id, topic, name, email, body, received_at FROM messages ORDER BY id DESC`)
	} else {
		rows, err = s.db.Query(`SELECT id, topic, name, email, body, received_at FROM messages WHERE topic = ? ORDER BY id DESC`, topic)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []ContactMessage
	for rows.Next() {
		var m ContactMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Name, &m.Email, &m.Body, &m.ReceivedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// SaveImage records an uploaded image's metadata.
func (s *Store) SaveImage(img Image) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO images (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt)
	return err
}

// ListImages returns uploaded images newest first.
func (s *Store) ListImages() ([]Image, error) {
	rows, err := s.db.Query(`SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// DeleteImage removes an image record by filename.
func (s *Store) DeleteImage(filename string) error {
	_, err := s.db.Exec(`DELETE FROM images WHERE filename = ?`, filename)
	return err
}

// ParseTags splits a comma-delimited tag string (e.g. ",wool,dye,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
