//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/helix/internal/tension"
)

// tensions_fts is an external-content index over tensions; the triggers keep
// it in step with inserts, deletes and title/note edits.
func initSearch(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tensions_fts USING fts5(
			title,
			note,
			content = 'tensions',
			content_rowid = 'id',
			tokenize = 'unicode61 remove_diacritics 2'
		);

		CREATE TRIGGER IF NOT EXISTS tensions_fts_ai AFTER INSERT ON tensions BEGIN
			INSERT INTO tensions_fts (rowid, title, note) VALUES (new.id, new.title, new.note);
		END;

		CREATE TRIGGER IF NOT EXISTS tensions_fts_ad AFTER DELETE ON tensions BEGIN
			INSERT INTO tensions_fts (tensions_fts, rowid, title, note) VALUES ('delete', old.id, old.title, old.note);
		END;

		CREATE TRIGGER IF NOT EXISTS tensions_fts_au AFTER UPDATE OF title, note ON tensions BEGIN
			INSERT INTO tensions_fts (tensions_fts, rowid, title, note) VALUES ('delete', old.id, old.title, old.note);
			INSERT INTO tensions_fts (rowid, title, note) VALUES (new.id, new.title, new.note);
		END;
	`)
	if err != nil {
		return err
	}
	// Picks up rows written by a build without FTS5.
	_, err = conn.Exec(`INSERT INTO tensions_fts (tensions_fts) VALUES ('rebuild')`)
	return err
}

// Search performs an FTS5 full-text search over title and note. The query is
// matched as a phrase so user input never reaches the FTS5 query syntax.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]tension.Tension, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+tensionColumns+`
		FROM tensions
		WHERE id IN (SELECT rowid FROM tensions_fts WHERE tensions_fts MATCH ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, phrase(query), limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return collectTensions(rows)
}

func phrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}
