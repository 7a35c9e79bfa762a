package database

import (
	"database/sql"
	"time"
)

// InsertFeedConfiguration creates a new feed source. Returns 0 if the URL
// already exists.
func (db *DB) InsertFeedConfiguration(name, url string, category *string, isActive bool, priority int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO feed_configurations (name, url, category, is_active, created_at, priority)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		name, url, category, boolToInt(isActive), formatTime(time.Now().UTC()), priority,
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

const feedConfigColumns = "id, name, url, category, is_active, created_at, last_fetched, fetch_error, priority"

// FeedConfigurations returns all feed sources ordered by priority then name.
// When activeOnly is set, disabled feeds are excluded.
func (db *DB) FeedConfigurations(activeOnly bool) ([]FeedConfiguration, error) {
	query := `SELECT ` + feedConfigColumns + ` FROM feed_configurations`
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY priority DESC, name ASC"

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []FeedConfiguration
	for rows.Next() {
		f, err := scanFeedConfigRow(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *f)
	}
	return feeds, rows.Err()
}

// FeedConfigurationByID returns a single feed source, or nil if not found.
func (db *DB) FeedConfigurationByID(id int64) (*FeedConfiguration, error) {
	row := db.conn.QueryRow(
		`SELECT `+feedConfigColumns+` FROM feed_configurations WHERE id = ?`, id,
	)
	f, err := scanFeedConfigRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// FeedConfigurationByURL returns the feed source with the given URL, or nil.
func (db *DB) FeedConfigurationByURL(url string) (*FeedConfiguration, error) {
	row := db.conn.QueryRow(
		`SELECT `+feedConfigColumns+` FROM feed_configurations WHERE url = ?`, url,
	)
	f, err := scanFeedConfigRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// UpdateFeedConfiguration updates the mutable fields of a feed source.
func (db *DB) UpdateFeedConfiguration(f *FeedConfiguration) error {
	_, err := db.conn.Exec(
		`UPDATE feed_configurations SET name = ?, url = ?, category = ?, is_active = ?, priority = ?
		WHERE id = ?`,
		f.Name, f.URL, f.Category, boolToInt(f.IsActive), f.Priority, f.ID,
	)
	return err
}

// DeleteFeedConfiguration removes a feed source entirely. Normal operation
// soft-disables via is_active; hard delete is an administrative action.
func (db *DB) DeleteFeedConfiguration(id int64) error {
	_, err := db.conn.Exec("DELETE FROM feed_configurations WHERE id = ?", id)
	return err
}

// MarkFeedFetched records a successful fetch and clears any stored error.
func (db *DB) MarkFeedFetched(id int64) error {
	_, err := db.conn.Exec(
		"UPDATE feed_configurations SET last_fetched = ?, fetch_error = NULL WHERE id = ?",
		formatTime(time.Now().UTC()), id,
	)
	return err
}

// MarkFeedError records a failed fetch attempt.
func (db *DB) MarkFeedError(id int64, errMsg string) error {
	_, err := db.conn.Exec(
		"UPDATE feed_configurations SET last_fetched = ?, fetch_error = ? WHERE id = ?",
		formatTime(time.Now().UTC()), errMsg, id,
	)
	return err
}

func scanFeedConfigRow(s rowScanner) (*FeedConfiguration, error) {
	var f FeedConfiguration
	var active int
	var createdAt string
	var lastFetched *string

	if err := s.Scan(&f.ID, &f.Name, &f.URL, &f.Category, &active,
		&createdAt, &lastFetched, &f.FetchError, &f.Priority); err != nil {
		return nil, err
	}

	f.IsActive = active != 0
	f.CreatedAt = parseTime(createdAt)
	f.LastFetched = parseTimePtr(lastFetched)
	return &f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
