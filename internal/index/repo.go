package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// EntityRow represents a row in the entities table.
type EntityRow struct {
	Path     string
	ID       string
	Kind     string
	Name     string
	Checksum string
	Tags     []string
	// DateText is the raw story date; HasDate reports whether it parsed.
	DateText    string
	HasDate     bool
	DateMillis  int64
	Precision   string
	Approximate bool
	IsBCE       bool
	UpdatedAt   time.Time
}

// Summary converts the row to its transport form.
func (r EntityRow) Summary() models.EntitySummary {
	return models.EntitySummary{
		Path:      r.Path,
		ID:        r.ID,
		Kind:      r.Kind,
		Name:      r.Name,
		Checksum:  r.Checksum,
		Tags:      r.Tags,
		UpdatedAt: r.UpdatedAt,
	}
}

const entityColumns = `path, id, kind, name, checksum, tags, date_text, date_ms, precision, approximate, is_bce, updated_at`

// UpsertEntity inserts or replaces an entity, its FTS entry, and links within a transaction.
func (db *DB) UpsertEntity(e EntityRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if e.Tags == nil {
		e.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(e.Tags)
	var dateMS sql.NullInt64
	if e.HasDate {
		dateMS = sql.NullInt64{Int64: e.DateMillis, Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO entities (path, id, kind, name, checksum, tags, date_text, date_ms, precision, approximate, is_bce, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id          = excluded.id,
			kind        = excluded.kind,
			name        = excluded.name,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			date_text   = excluded.date_text,
			date_ms     = excluded.date_ms,
			precision   = excluded.precision,
			approximate = excluded.approximate,
			is_bce      = excluded.is_bce,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, e.Path, e.ID, e.Kind, e.Name, e.Checksum, string(tagsJSON), e.DateText, dateMS,
		e.Precision, e.Approximate, e.IsBCE, body, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert entity: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, e.Path, e.Name, body, e.Tags); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, e.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(e.Path, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteEntity removes an entity, its FTS entry, and outgoing links.
func (db *DB) DeleteEntity(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM entities WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for an entity, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entities WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetEntity returns one row by path.
func (db *DB) GetEntity(path string) (*EntityRow, error) {
	row := db.conn.QueryRow(`SELECT `+entityColumns+` FROM entities WHERE path = ?`, path)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get entity: %w", err)
	}
	return e, nil
}

// ListEntities returns a page of entities ordered by kind and name, plus the
// total count. An empty kind lists every kind.
func (db *DB) ListEntities(kind string, limit, offset int) ([]EntityRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entities WHERE (? = '' OR kind = ?)`, kind, kind).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count entities: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT `+entityColumns+`
		FROM entities
		WHERE (? = '' OR kind = ?)
		ORDER BY kind, name COLLATE NOCASE, path
		LIMIT ? OFFSET ?
	`, kind, kind, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list entities: %w", err)
	}
	defer rows.Close()
	out, err := collectEntities(rows)
	return out, total, err
}

// Timeline returns entities with a parsed story date in chronological order.
// BCE dates carry negative milliseconds and sort first.
func (db *DB) Timeline(kind string) ([]EntityRow, error) {
	rows, err := db.conn.Query(`
		SELECT `+entityColumns+`
		FROM entities
		WHERE date_ms IS NOT NULL AND (? = '' OR kind = ?)
		ORDER BY date_ms, name COLLATE NOCASE, path
	`, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("index: timeline: %w", err)
	}
	defer rows.Close()
	return collectEntities(rows)
}

// AllChecksums returns path → checksum for every indexed entity.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns all entity paths that link to the given target name.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(s scanner) (*EntityRow, error) {
	var (
		e        EntityRow
		tagsJSON string
		dateMS   sql.NullInt64
	)
	err := s.Scan(&e.Path, &e.ID, &e.Kind, &e.Name, &e.Checksum, &tagsJSON,
		&e.DateText, &dateMS, &e.Precision, &e.Approximate, &e.IsBCE, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tagsJSON), &e.Tags)
	if dateMS.Valid {
		e.HasDate = true
		e.DateMillis = dateMS.Int64
	}
	return &e, nil
}

func collectEntities(rows *sql.Rows) ([]EntityRow, error) {
	var out []EntityRow
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
