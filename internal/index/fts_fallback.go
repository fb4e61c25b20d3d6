//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on entries.content.
	return nil
}

func ftsInsert(_ *sql.Tx, _ string, _ int64, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// An empty userID searches every user.
func (db *DB) Search(query, userID string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT user_id, unix_ts, substr(content, 1, 200)
		FROM entries
		WHERE content LIKE ? AND (? = '' OR user_id = ?)
		ORDER BY unix_ts DESC
		LIMIT ?
	`, like, userID, userID, limit)
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
