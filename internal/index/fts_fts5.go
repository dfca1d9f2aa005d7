//go:build sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/folio/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chapters_fts USING fts5(
			id UNINDEXED,
			heading,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, heading, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM chapters_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO chapters_fts (id, heading, body, tags) VALUES (?, ?, ?, ?)`,
		id, heading, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM chapters_fts WHERE id = ?`, id)
}

// Search runs an FTS5 query and returns ranked hits with snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT f.id, c.project_id, c.name, c.title,
		       snippet(chapters_fts, 2, '<b>', '</b>', '...', 64)
		FROM chapters_fts f
		JOIN chapters c ON c.id = f.id
		WHERE chapters_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var (
			r       SearchResult
			id, pid string
		)
		if err := rows.Scan(&id, &pid, &r.Name, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		r.ID = models.DocumentID(id)
		r.ProjectID = models.ProjectID(pid)
		out = append(out, r)
	}
	return out, rows.Err()
}
