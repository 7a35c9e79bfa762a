package database

import (
	"database/sql"
	"encoding/json"
	"time"
)

// InsertFeedItem inserts a feed item if its fingerprint (or link+title
// pair) is unseen. Returns the new ID, or 0 if the item was a duplicate.
func (db *DB) InsertFeedItem(item *FeedItem) (int64, error) {
	var raw *string
	if item.Raw != nil {
		s := string(item.Raw)
		raw = &s
	}

	fetchedAt := item.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	result, err := db.conn.Exec(
		`INSERT INTO feed_items (feed_url, feed_name, title, summary, link, published_at, fetched_at, content_hash, content, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		item.FeedURL, item.FeedName, item.Title, item.Summary, item.Link,
		formatTime(item.PublishedAt), formatTime(fetchedAt), item.ContentHash, item.Content, raw,
	)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil || affected == 0 {
		return 0, err
	}
	return result.LastInsertId()
}

const feedItemColumns = "id, feed_url, feed_name, title, summary, link, published_at, fetched_at, content_hash, content, raw"

// FeedItemByHash returns the item with the given content fingerprint, or nil.
func (db *DB) FeedItemByHash(hash string) (*FeedItem, error) {
	row := db.conn.QueryRow(
		`SELECT `+feedItemColumns+` FROM feed_items WHERE content_hash = ?`, hash,
	)
	return scanFeedItem(row)
}

// FeedItemByID returns a single feed item, or nil if not found.
func (db *DB) FeedItemByID(id int64) (*FeedItem, error) {
	row := db.conn.QueryRow(
		`SELECT `+feedItemColumns+` FROM feed_items WHERE id = ?`, id,
	)
	return scanFeedItem(row)
}

// FeedItemsPublishedAfter returns items published strictly after the given
// time, newest first, capped at limit.
func (db *DB) FeedItemsPublishedAfter(after time.Time, limit int) ([]FeedItem, error) {
	rows, err := db.conn.Query(
		`SELECT `+feedItemColumns+` FROM feed_items
		WHERE published_at > ? ORDER BY published_at DESC LIMIT ?`,
		formatTime(after), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeedItems(rows)
}

// FeedItemsByIDs returns the items matching the given ids.
func (db *DB) FeedItemsByIDs(ids []int64) ([]FeedItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + feedItemColumns + ` FROM feed_items WHERE id IN (`
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += ")"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeedItems(rows)
}

// FeedItemsFetchedSince returns items fetched at or after the cutoff.
func (db *DB) FeedItemsFetchedSince(cutoff time.Time) ([]FeedItem, error) {
	rows, err := db.conn.Query(
		`SELECT `+feedItemColumns+` FROM feed_items
		WHERE fetched_at >= ? ORDER BY fetched_at ASC`, formatTime(cutoff),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeedItems(rows)
}

// FeedItemsNeedingContent returns items without fetched full text, newest
// first, capped at limit.
func (db *DB) FeedItemsNeedingContent(limit int) ([]FeedItem, error) {
	rows, err := db.conn.Query(
		`SELECT `+feedItemColumns+` FROM feed_items
		WHERE content IS NULL ORDER BY published_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeedItems(rows)
}

// UpdateFeedItemContent stores fetched full text for an item. An empty
// string marks a failed fetch so the item is not retried.
func (db *DB) UpdateFeedItemContent(id int64, content string) error {
	_, err := db.conn.Exec("UPDATE feed_items SET content = ? WHERE id = ?", content, id)
	return err
}

func scanFeedItemRow(s rowScanner) (*FeedItem, error) {
	var item FeedItem
	var publishedAt, fetchedAt string
	var raw *string

	if err := s.Scan(&item.ID, &item.FeedURL, &item.FeedName, &item.Title,
		&item.Summary, &item.Link, &publishedAt, &fetchedAt,
		&item.ContentHash, &item.Content, &raw); err != nil {
		return nil, err
	}

	item.PublishedAt = parseTime(publishedAt)
	item.FetchedAt = parseTime(fetchedAt)
	if raw != nil {
		item.Raw = json.RawMessage(*raw)
	}
	return &item, nil
}

func scanFeedItem(row *sql.Row) (*FeedItem, error) {
	item, err := scanFeedItemRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanFeedItems(rows *sql.Rows) ([]FeedItem, error) {
	var items []FeedItem
	for rows.Next() {
		item, err := scanFeedItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
