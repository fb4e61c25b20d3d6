//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			user_id UNINDEXED,
			unix_ts UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, userID string, ts int64, content string) error {
	_, err := tx.Exec(`INSERT INTO entries_fts (user_id, unix_ts, content) VALUES (?, ?, ?)`, userID, ts, content)
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, userID string) error {
	if _, err := tx.Exec(`DELETE FROM entries_fts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search over entry content. An empty
// userID searches every user.
func (db *DB) Search(query, userID string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT user_id,
		       unix_ts,
		       snippet(entries_fts, 2, '<b>', '</b>', '...', 32)
		FROM entries_fts
		WHERE entries_fts MATCH ? AND (? = '' OR user_id = ?)
		ORDER BY rank
		LIMIT ?
	`, query, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.UserID, &r.UnixTimestamp, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
