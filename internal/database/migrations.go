package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS story_versions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    full_text TEXT NOT NULL,
    summary TEXT NOT NULL,
    context_summary TEXT,
    sources_snapshot TEXT,
    token_stats TEXT
);

CREATE INDEX IF NOT EXISTS idx_story_versions_created_at ON story_versions(created_at);

CREATE TABLE IF NOT EXISTS feed_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    feed_url TEXT NOT NULL,
    feed_name TEXT NOT NULL,
    title TEXT NOT NULL,
    summary TEXT,
    link TEXT NOT NULL,
    published_at TEXT NOT NULL,
    fetched_at TEXT NOT NULL,
    content_hash TEXT NOT NULL UNIQUE,
    content TEXT,
    raw TEXT,
    UNIQUE(link, title)
);

CREATE INDEX IF NOT EXISTS idx_feed_items_published_at ON feed_items(published_at);
CREATE INDEX IF NOT EXISTS idx_feed_items_feed_url ON feed_items(feed_url);

CREATE TABLE IF NOT EXISTS feed_configurations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    url TEXT NOT NULL UNIQUE,
    category TEXT,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    last_fetched TEXT,
    fetch_error TEXT,
    priority INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS story_analytics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    story_version_id INTEGER NOT NULL UNIQUE REFERENCES story_versions(id),
    created_at TEXT NOT NULL,
    overall_sentiment TEXT,
    sentiment_score TEXT,
    bias_indicators TEXT,
    bias_score TEXT,
    source_analysis TEXT,
    fact_checks TEXT,
    predictions TEXT,
    events TEXT
);

CREATE TABLE IF NOT EXISTS generated_images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    story_version_id INTEGER NOT NULL REFERENCES story_versions(id),
    prompt TEXT NOT NULL,
    image_url TEXT NOT NULL,
    revised_prompt TEXT,
    model TEXT NOT NULL,
    size TEXT NOT NULL,
    quality TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generated_images_story ON generated_images(story_version_id);

CREATE TABLE IF NOT EXISTS user_settings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT NOT NULL UNIQUE,
    value TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "admin sessions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS admin_sessions (
    token_hash TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
`)
			return err
		},
	},
}

func latestVersion() int {
	return migrations[len(migrations)-1].Version
}
