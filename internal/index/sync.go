package index

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/saga/internal/checksum"
	"github.com/starford/saga/internal/document"
	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/eventdate"
	"github.com/starford/saga/internal/sections"
	"github.com/starford/saga/internal/storage"
)

// Options controls how vault files are decoded into index rows.
type Options struct {
	Mode entity.CustomFieldsMode
	// Dates is used for story dates. Leave Reference zero so the index never
	// depends on when it was built.
	Dates eventdate.Options
}

// Sync walks the vault and brings the index up to date:
//   - new/changed files are decoded and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, opts Options, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, opts, logger); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteEntity(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile decodes data as an entity document and upserts it. Files outside
// the kind folders are indexed with an empty kind so search still finds them.
func indexFile(db *DB, p string, data []byte, opts Options, logger *slog.Logger) error {
	row, body, links, err := BuildRow(p, data, opts, logger)
	if err != nil {
		return err
	}
	return db.UpsertEntity(row, body, links)
}

// BuildRow decodes a vault file into its index row, searchable body and link
// targets.
func BuildRow(p string, data []byte, opts Options, logger *slog.Logger) (EntityRow, string, []string, error) {
	kind, _ := entity.KindForPath(p)
	d, err := document.Decode(kind, string(data), opts.Mode)
	if err != nil {
		return EntityRow{}, "", nil, err
	}
	if d.Strategy == sections.StrategyLines && logger != nil {
		logger.Warn("section heading pattern matched nothing, used line scanner",
			slog.String("path", p))
	}
	name := d.Entity.Name
	if name == "" {
		name = strings.TrimSuffix(path.Base(p), ".md")
	}
	row := EntityRow{
		Path:      p,
		ID:        d.Entity.ID,
		Kind:      string(kind),
		Name:      name,
		Checksum:  checksum.Sum(data),
		Tags:      d.Tags,
		DateText:  d.DateText(),
		UpdatedAt: time.Now().UTC(),
	}
	if row.DateText != "" {
		if res := eventdate.Parse(row.DateText, opts.Dates); res.OK() {
			row.HasDate = true
			row.DateMillis, _ = res.Millis()
			row.Precision = string(res.Precision)
			row.Approximate = res.Approximate
			row.IsBCE = res.IsBCE
		}
	}
	return row, d.Body, d.Links, nil
}
