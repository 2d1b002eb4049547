//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/helix/internal/tension"
)

func initSearch(_ *sql.DB) error {
	// Without FTS5 search scans the tensions table directly.
	return nil
}

// Search performs a case-insensitive substring match on title and note.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]tension.Tension, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+tensionColumns+`
		FROM tensions
		WHERE title LIKE ? ESCAPE '\' OR note LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return collectTensions(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
