package database

import (
	"database/sql"
	"encoding/json"
	"time"
)

// SetSetting upserts a runtime setting value.
func (db *DB) SetSetting(key string, value json.RawMessage) error {
	now := formatTime(time.Now().UTC())
	_, err := db.conn.Exec(
		`INSERT INTO user_settings (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), now, now,
	)
	return err
}

// GetSetting returns the value for a key, or nil if unset.
func (db *DB) GetSetting(key string) (json.RawMessage, error) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM user_settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(value), nil
}

// AllSettings returns every stored setting keyed by name.
func (db *DB) AllSettings() (map[string]json.RawMessage, error) {
	rows, err := db.conn.Query("SELECT key, value FROM user_settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = json.RawMessage(value)
	}
	return settings, rows.Err()
}

// DeleteSetting removes a stored setting, reverting to the config default.
func (db *DB) DeleteSetting(key string) error {
	_, err := db.conn.Exec("DELETE FROM user_settings WHERE key = ?", key)
	return err
}
