package database

import (
	"encoding/json"
	"time"
)

// GetStats collects aggregate statistics for the status command and the
// admin stats endpoint.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	queries := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&s.TotalStories, "SELECT COUNT(*) FROM story_versions", nil},
		{&s.StoriesToday, "SELECT COUNT(*) FROM story_versions WHERE created_at >= ?", []any{formatTime(todayStart)}},
		{&s.StoriesThisWeek, "SELECT COUNT(*) FROM story_versions WHERE created_at >= ?", []any{formatTime(weekStart)}},
		{&s.TotalFeedItems, "SELECT COUNT(*) FROM feed_items", nil},
		{&s.FeedItemsToday, "SELECT COUNT(*) FROM feed_items WHERE fetched_at >= ?", []any{formatTime(todayStart)}},
		{&s.UniqueSources, "SELECT COUNT(DISTINCT feed_name) FROM feed_items", nil},
		{&s.TotalFeeds, "SELECT COUNT(*) FROM feed_configurations", nil},
		{&s.ActiveFeeds, "SELECT COUNT(*) FROM feed_configurations WHERE is_active = 1", nil},
		{&s.FeedsWithErrors, "SELECT COUNT(*) FROM feed_configurations WHERE fetch_error IS NOT NULL", nil},
		{&s.AnalyticsRows, "SELECT COUNT(*) FROM story_analytics", nil},
		{&s.GeneratedImages, "SELECT COUNT(*) FROM generated_images", nil},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.query, q.args...).Scan(q.dst); err != nil {
			return nil, err
		}
	}

	// Token totals live inside the token_stats JSON column.
	rows, err := db.conn.Query("SELECT token_stats FROM story_versions WHERE token_stats IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var statsJSON string
		if err := rows.Scan(&statsJSON); err != nil {
			return nil, err
		}
		var stats TokenStats
		if err := json.Unmarshal([]byte(statsJSON), &stats); err == nil {
			s.TotalTokens += stats.TotalTokens
		}
	}

	return s, rows.Err()
}

// TopFeeds returns the most active sources by item count.
func (db *DB) TopFeeds(limit int) ([]TopFeed, error) {
	rows, err := db.conn.Query(
		`SELECT feed_name, COUNT(*) AS cnt FROM feed_items
		GROUP BY feed_name ORDER BY cnt DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []TopFeed
	for rows.Next() {
		var f TopFeed
		if err := rows.Scan(&f.Name, &f.Count); err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}
