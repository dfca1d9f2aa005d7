package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/folio/internal/models"
)

// ChapterRow is one indexed chapter.
type ChapterRow struct {
	ID          models.DocumentID `json:"id"`
	ProjectID   models.ProjectID  `json:"projectId"`
	ProjectName string            `json:"projectName"`
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Tags        []string          `json:"tags"`
	Words       int               `json:"words"`
	Checksum    string            `json:"-"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// SearchResult is one search hit.
type SearchResult struct {
	ID        models.DocumentID `json:"id"`
	ProjectID models.ProjectID  `json:"projectId"`
	Name      string            `json:"name"`
	Title     string            `json:"title"`
	Snippet   string            `json:"snippet"`
}

// Stats summarizes the index.
type Stats struct {
	Projects int `json:"projects"`
	Chapters int `json:"chapters"`
	Words    int `json:"words"`
}

// UpsertChapter inserts or replaces a chapter, its FTS entry and its
// outgoing links within one transaction. Link targets are chapter names and
// are matched case-insensitively.
func (db *DB) UpsertChapter(ctx context.Context, c ChapterRow, body string, links []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chapters (id, project_id, project_name, name, title, tags, words, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id   = excluded.project_id,
			project_name = excluded.project_name,
			name         = excluded.name,
			title        = excluded.title,
			tags         = excluded.tags,
			words        = excluded.words,
			checksum     = excluded.checksum,
			body         = excluded.body,
			updated_at   = excluded.updated_at
	`, string(c.ID), string(c.ProjectID), c.ProjectName, c.Name, c.Title, string(tagsJSON), c.Words, c.Checksum, body, c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert chapter: %w", err)
	}

	if err := ftsUpsert(tx, string(c.ID), c.Name+" "+c.Title, body, tags); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chapter_links WHERE source = ?`, string(c.ID)); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO chapter_links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.ExecContext(ctx, string(c.ID), strings.ToLower(target)); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteChapter removes a chapter, its FTS entry and its outgoing links.
func (db *DB) DeleteChapter(ctx context.Context, id models.DocumentID) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, string(id))
	if _, err := tx.ExecContext(ctx, `DELETE FROM chapter_links WHERE source = ?`, string(id)); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("index: delete chapter: %w", err)
	}
	return tx.Commit()
}

// Checksums returns the stored checksum of every indexed chapter.
func (db *DB) Checksums(ctx context.Context) (map[models.DocumentID]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, checksum FROM chapters`)
	if err != nil {
		return nil, fmt.Errorf("index: checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[models.DocumentID]string)
	for rows.Next() {
		var id, sum string
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		out[models.DocumentID(id)] = sum
	}
	return out, rows.Err()
}

// Chapter returns the indexed row for id, or nil when it is not indexed.
func (db *DB) Chapter(ctx context.Context, id models.DocumentID) (*ChapterRow, error) {
	var (
		c    ChapterRow
		pid  string
		tags string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT project_id, project_name, name, title, tags, words, checksum, updated_at
		FROM chapters WHERE id = ?
	`, string(id)).Scan(&pid, &c.ProjectName, &c.Name, &c.Title, &tags, &c.Words, &c.Checksum, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: chapter: %w", err)
	}
	c.ID = id
	c.ProjectID = models.ProjectID(pid)
	_ = json.Unmarshal([]byte(tags), &c.Tags)
	return &c, nil
}

// Backlinks returns the chapters of the same project whose [[links]] name
// the given chapter, by name or by title.
func (db *DB) Backlinks(ctx context.Context, id models.DocumentID) ([]ChapterRow, error) {
	target, err := db.Chapter(ctx, id)
	if err != nil || target == nil {
		return []ChapterRow{}, err
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT c.id, c.name, c.title, c.words, c.updated_at
		FROM chapter_links l
		JOIN chapters c ON c.id = l.source
		WHERE c.project_id = ?
		  AND c.id != ?
		  AND l.target IN (?, ?)
		ORDER BY c.name
	`, string(target.ProjectID), string(id), strings.ToLower(target.Name), strings.ToLower(target.Title))
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	out := []ChapterRow{}
	for rows.Next() {
		var (
			c   ChapterRow
			cid string
		)
		if err := rows.Scan(&cid, &c.Name, &c.Title, &c.Words, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.ID = models.DocumentID(cid)
		c.ProjectID = target.ProjectID
		c.ProjectName = target.ProjectName
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats counts indexed projects, chapters and words.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT project_id), COUNT(*), COALESCE(SUM(words), 0) FROM chapters
	`).Scan(&s.Projects, &s.Chapters, &s.Words)
	if err != nil {
		return Stats{}, fmt.Errorf("index: stats: %w", err)
	}
	return s, nil
}
