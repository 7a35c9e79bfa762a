package database

import (
	"database/sql"
	"time"
)

// InsertSession stores an admin session token hash with its expiry.
// Sessions survive process restarts; expiry is the only invalidation.
func (db *DB) InsertSession(tokenHash string, expiresAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO admin_sessions (token_hash, created_at, expires_at) VALUES (?, ?, ?)",
		tokenHash, formatTime(time.Now().UTC()), formatTime(expiresAt),
	)
	return err
}

// SessionValid reports whether a non-expired session exists for the hash.
// Expired rows encountered along the way are pruned.
func (db *DB) SessionValid(tokenHash string) (bool, error) {
	var expiresAt string
	err := db.conn.QueryRow(
		"SELECT expires_at FROM admin_sessions WHERE token_hash = ?", tokenHash,
	).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if parseTime(expiresAt).Before(time.Now().UTC()) {
		db.conn.Exec("DELETE FROM admin_sessions WHERE token_hash = ?", tokenHash)
		return false, nil
	}
	return true, nil
}

// PruneSessions deletes all expired sessions.
func (db *DB) PruneSessions() error {
	_, err := db.conn.Exec(
		"DELETE FROM admin_sessions WHERE expires_at < ?",
		formatTime(time.Now().UTC()),
	)
	return err
}
