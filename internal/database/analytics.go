package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// InsertAnalytics persists analytics for a story version, enforcing the
// one-row-per-version invariant at the storage layer. It is the documented
// insert-with-conflict-resolution primitive: on a uniqueness conflict the
// local write is discarded and the winner's row is re-read and returned.
// If the re-read still finds nothing, (nil, nil) is returned and the
// caller reports analytics unavailable.
func (db *DB) InsertAnalytics(a *StoryAnalytics) (*StoryAnalytics, error) {
	sentimentJSON, err := marshalJSON(a.SentimentScore)
	if err != nil {
		return nil, err
	}
	biasScoreJSON, err := marshalJSON(a.BiasScore)
	if err != nil {
		return nil, err
	}
	biasIndJSON, err := marshalJSON(a.BiasIndicators)
	if err != nil {
		return nil, err
	}
	sourcesJSON, err := marshalJSON(emptySlice(a.SourceAnalysis))
	if err != nil {
		return nil, err
	}
	factsJSON, err := marshalJSON(emptySlice(a.FactChecks))
	if err != nil {
		return nil, err
	}
	predictionsJSON, err := marshalJSON(emptySlice(a.Predictions))
	if err != nil {
		return nil, err
	}
	eventsJSON, err := marshalJSON(emptySlice(a.Events))
	if err != nil {
		return nil, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO story_analytics
		(story_version_id, created_at, overall_sentiment, sentiment_score, bias_indicators, bias_score, source_analysis, fact_checks, predictions, events)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(story_version_id) DO NOTHING`,
		a.StoryVersionID, formatTime(time.Now().UTC()), a.OverallSentiment,
		sentimentJSON, biasIndJSON, biasScoreJSON, sourcesJSON, factsJSON,
		predictionsJSON, eventsJSON,
	)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Lost the race; another caller inserted first. Read their row.
		return db.AnalyticsForStory(a.StoryVersionID)
	}

	return db.AnalyticsForStory(a.StoryVersionID)
}

const analyticsColumns = "id, story_version_id, created_at, overall_sentiment, sentiment_score, bias_indicators, bias_score, source_analysis, fact_checks, predictions, events"

// AnalyticsForStory returns the analytics row for a story version, or nil.
func (db *DB) AnalyticsForStory(storyID int64) (*StoryAnalytics, error) {
	row := db.conn.QueryRow(
		`SELECT `+analyticsColumns+` FROM story_analytics WHERE story_version_id = ?`, storyID,
	)
	a, err := scanAnalyticsRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RecentAnalytics returns the most recent analytics rows, newest first.
func (db *DB) RecentAnalytics(limit int) ([]StoryAnalytics, error) {
	rows, err := db.conn.Query(
		`SELECT `+analyticsColumns+` FROM story_analytics
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []StoryAnalytics
	for rows.Next() {
		a, err := scanAnalyticsRow(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, *a)
	}
	return all, rows.Err()
}

// AnalyticsCount returns the number of analytics rows.
func (db *DB) AnalyticsCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM story_analytics").Scan(&count)
	return count, err
}

func scanAnalyticsRow(s rowScanner) (*StoryAnalytics, error) {
	var a StoryAnalytics
	var createdAt string
	var overall *string
	var sentiment, biasInd, biasScore, sources, facts, predictions, events *string

	if err := s.Scan(&a.ID, &a.StoryVersionID, &createdAt, &overall,
		&sentiment, &biasInd, &biasScore, &sources, &facts, &predictions, &events); err != nil {
		return nil, err
	}

	a.CreatedAt = parseTime(createdAt)
	if overall != nil {
		a.OverallSentiment = *overall
	}
	unmarshalJSON(sentiment, &a.SentimentScore)
	unmarshalJSON(biasInd, &a.BiasIndicators)
	unmarshalJSON(biasScore, &a.BiasScore)
	unmarshalJSON(sources, &a.SourceAnalysis)
	unmarshalJSON(facts, &a.FactChecks)
	unmarshalJSON(predictions, &a.Predictions)
	unmarshalJSON(events, &a.Events)
	return &a, nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling analytics field: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON[T any](s *string, dst *T) {
	if s == nil {
		return
	}
	json.Unmarshal([]byte(*s), dst)
}

// emptySlice normalizes nil slices so stored JSON is [] rather than null.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
