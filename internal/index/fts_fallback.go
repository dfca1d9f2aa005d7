//go:build !sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/folio/internal/models"
)

func initFTS(_ *sql.DB) error {
	// Without FTS5, search scans chapters.body with LIKE.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search matches query against chapter names, titles, bodies and tags
// (LIKE fallback when FTS5 is not compiled in).
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, project_id, name, title, substr(body, 1, 200)
		FROM chapters
		WHERE name LIKE ?1 ESCAPE '\' OR title LIKE ?1 ESCAPE '\'
		   OR body LIKE ?1 ESCAPE '\' OR tags LIKE ?1 ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT ?2
	`, like, limit)
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

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
