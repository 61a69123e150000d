//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/saga/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
			path UNINDEXED,
			name,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, name, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM entities_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO entities_fts (path, name, body, tags) VALUES (?, ?, ?, ?)`,
		path, name, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM entities_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search and returns matching entities with snippets.
func (db *DB) Search(query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT entities_fts.path,
		       e.kind,
		       entities_fts.name,
		       snippet(entities_fts, 2, '<b>', '</b>', '...', 64)
		FROM entities_fts
		JOIN entities e ON e.path = entities_fts.path
		WHERE entities_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchHit
	for rows.Next() {
		var r models.SearchHit
		if err := rows.Scan(&r.Path, &r.Kind, &r.Name, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
