package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// InsertStoryVersion appends a new story version. Rows are never updated
// or deleted afterwards.
func (db *DB) InsertStoryVersion(fullText, summary string, contextSummary *string, snapshot *SourcesSnapshot, stats *TokenStats) (*StoryVersion, error) {
	now := time.Now().UTC()

	var snapshotJSON, statsJSON *string
	if snapshot != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return nil, fmt.Errorf("marshaling sources snapshot: %w", err)
		}
		s := string(data)
		snapshotJSON = &s
	}
	if stats != nil {
		data, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("marshaling token stats: %w", err)
		}
		s := string(data)
		statsJSON = &s
	}

	result, err := db.conn.Exec(
		`INSERT INTO story_versions (created_at, full_text, summary, context_summary, sources_snapshot, token_stats)
		VALUES (?, ?, ?, ?, ?, ?)`,
		formatTime(now), fullText, summary, contextSummary, snapshotJSON, statsJSON,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &StoryVersion{
		ID:              id,
		CreatedAt:       now,
		FullText:        fullText,
		Summary:         summary,
		ContextSummary:  contextSummary,
		SourcesSnapshot: snapshot,
		TokenStats:      stats,
	}, nil
}

const storyColumns = "id, created_at, full_text, summary, context_summary, sources_snapshot, token_stats"

// LatestStory returns the story version with the maximum creation time,
// or nil if none exist. Ties break on id.
func (db *DB) LatestStory() (*StoryVersion, error) {
	row := db.conn.QueryRow(
		`SELECT ` + storyColumns + ` FROM story_versions ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	return scanStory(row)
}

// StoryByID returns a single story version, or nil if not found.
func (db *DB) StoryByID(id int64) (*StoryVersion, error) {
	row := db.conn.QueryRow(
		`SELECT `+storyColumns+` FROM story_versions WHERE id = ?`, id,
	)
	return scanStory(row)
}

// StoryHistory returns story versions ordered newest first.
func (db *DB) StoryHistory(limit, offset int) ([]StoryVersion, error) {
	rows, err := db.conn.Query(
		`SELECT `+storyColumns+` FROM story_versions
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// RecentStories returns the n most recent story versions, newest first.
func (db *DB) RecentStories(n int) ([]StoryVersion, error) {
	return db.StoryHistory(n, 0)
}

// StoriesSince returns story versions created at or after the cutoff,
// oldest first.
func (db *DB) StoriesSince(cutoff time.Time) ([]StoryVersion, error) {
	rows, err := db.conn.Query(
		`SELECT `+storyColumns+` FROM story_versions
		WHERE created_at >= ? ORDER BY created_at ASC, id ASC`, formatTime(cutoff),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// StoryCount returns the total number of story versions.
func (db *DB) StoryCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM story_versions").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStoryRow(s rowScanner) (*StoryVersion, error) {
	var v StoryVersion
	var createdAt string
	var snapshotJSON, statsJSON *string

	if err := s.Scan(&v.ID, &createdAt, &v.FullText, &v.Summary,
		&v.ContextSummary, &snapshotJSON, &statsJSON); err != nil {
		return nil, err
	}

	v.CreatedAt = parseTime(createdAt)
	if snapshotJSON != nil {
		var snapshot SourcesSnapshot
		if err := json.Unmarshal([]byte(*snapshotJSON), &snapshot); err == nil {
			v.SourcesSnapshot = &snapshot
		}
	}
	if statsJSON != nil {
		var stats TokenStats
		if err := json.Unmarshal([]byte(*statsJSON), &stats); err == nil {
			v.TokenStats = &stats
		}
	}
	return &v, nil
}

func scanStory(row *sql.Row) (*StoryVersion, error) {
	v, err := scanStoryRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanStories(rows *sql.Rows) ([]StoryVersion, error) {
	var stories []StoryVersion
	for rows.Next() {
		v, err := scanStoryRow(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *v)
	}
	return stories, rows.Err()
}
