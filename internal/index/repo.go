package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ledgernotes/internal/apperr"
	"github.com/starford/ledgernotes/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	UserID        string `json:"user_id"`
	UnixTimestamp int64  `json:"unixTimestamp"`
	Snippet       string `json:"snippet"`
}

// ReplaceEntries swaps a user's snapshot and entries within a transaction.
// entries are stored in the given order.
func (db *DB) ReplaceEntries(s models.Snapshot, entries []models.Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if s.RefreshedAt.IsZero() {
		s.RefreshedAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO snapshots (user_id, address, source, checksum, entry_count, refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			address      = excluded.address,
			source       = excluded.source,
			checksum     = excluded.checksum,
			entry_count  = excluded.entry_count,
			refreshed_at = excluded.refreshed_at
	`, s.UserID, s.Address, s.Source, s.Checksum, len(entries), s.RefreshedAt)
	if err != nil {
		return fmt.Errorf("index: upsert snapshot: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM entries WHERE user_id = ?`, s.UserID); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}
	if err := ftsDelete(tx, s.UserID); err != nil {
		return err
	}

	if len(entries) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO entries (user_id, seq, unix_ts, content) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare entry insert: %w", err)
		}
		defer stmt.Close()
		for i, e := range entries {
			if _, err := stmt.Exec(s.UserID, i, e.UnixTimestamp, e.Content); err != nil {
				return fmt.Errorf("index: insert entry: %w", err)
			}
			if err := ftsInsert(tx, s.UserID, e.UnixTimestamp, e.Content); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteUser removes a user's snapshot and entries.
func (db *DB) DeleteUser(userID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_ = ftsDelete(tx, userID)
	_, _ = tx.Exec(`DELETE FROM entries WHERE user_id = ?`, userID)
	_, _ = tx.Exec(`DELETE FROM snapshots WHERE user_id = ?`, userID)

	return tx.Commit()
}

// GetSnapshot returns the stored snapshot header for a user.
func (db *DB) GetSnapshot(userID string) (*models.Snapshot, error) {
	var s models.Snapshot
	err := db.conn.QueryRow(`
		SELECT user_id, address, source, checksum, entry_count, refreshed_at
		FROM snapshots WHERE user_id = ?
	`, userID).Scan(&s.UserID, &s.Address, &s.Source, &s.Checksum, &s.EntryCount, &s.RefreshedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get snapshot: %w", err)
	}
	return &s, nil
}

// ListEntries returns a page of a user's entries in stored order, and the
// total count. A limit of zero or less returns every entry.
func (db *DB) ListEntries(userID string, limit, offset int) ([]models.Entry, int, error) {
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count entries: %w", err)
	}
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.conn.Query(`
		SELECT unix_ts, content FROM entries
		WHERE user_id = ?
		ORDER BY seq
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list entries: %w", err)
	}
	defer rows.Close()

	out := []models.Entry{}
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.UnixTimestamp, &e.Content); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the stored checksum of every snapshot, by user.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT user_id, checksum FROM snapshots`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var u, cs string
		if err := rows.Scan(&u, &cs); err != nil {
			return nil, err
		}
		out[u] = cs
	}
	return out, rows.Err()
}
