// Package storyservice coordinates the vault, the entity codec and the index.
package storyservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/checksum"
	"github.com/starford/saga/internal/document"
	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/eventdate"
	"github.com/starford/saga/internal/frontmatter"
	"github.com/starford/saga/internal/index"
	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/sections"
	"github.com/starford/saga/internal/storage"
)

// Config holds the document and date settings shared by every operation.
type Config struct {
	Mode entity.CustomFieldsMode
	// Locale is a BCP 47 tag used for month names and display strings.
	Locale      string
	Location    *time.Location
	ForwardDate bool
}

// IndexOptions returns the decode options used when indexing vault files.
// Relative dates are never resolved for the index.
func (c Config) IndexOptions() index.Options {
	return index.Options{
		Mode:  c.Mode,
		Dates: eventdate.Options{Location: c.Location, Locale: c.Locale},
	}
}

// EntityDetail is the full representation of one entity document.
type EntityDetail struct {
	Path      string            `json:"path"`
	Checksum  string            `json:"checksum"`
	Entity    *entity.Entity    `json:"entity"`
	Tags      []string          `json:"tags"`
	Links     []string          `json:"links"`
	Backlinks []string          `json:"backlinks"`
	Date      *eventdate.Result `json:"date,omitempty"`
	Strategy  sections.Strategy `json:"section_strategy"`
	Content   string            `json:"content"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     *index.DB
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new entity service.
func NewService(store storage.Provider, db *index.DB, cfg Config, logger *slog.Logger) *Service {
	if cfg.Mode == "" {
		cfg.Mode = entity.Flatten
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, db: db, cfg: cfg, logger: logger, now: time.Now}
}

// Config returns the service settings.
func (s *Service) Config() Config { return s.cfg }

// Get reads an entity by kind and name.
func (s *Service) Get(_ context.Context, kind entity.Kind, name string) (*EntityDetail, error) {
	p := entity.PathFor(kind, name)
	data, err := s.read(p)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(kind, p, data)
}

// Create writes a new entity document and indexes it. A missing id is
// assigned a random UUID.
func (s *Service) Create(_ context.Context, e *entity.Entity) (*EntityDetail, error) {
	if err := validate(e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	p := e.Path()
	exists, err := s.store.Exists(p)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrAlreadyExists
	}
	text, err := document.Encode(e, nil, s.cfg.Mode)
	if err != nil {
		return nil, err
	}
	data := []byte(text)
	if err := s.store.Write(p, data); err != nil {
		return nil, err
	}
	if err := s.IndexFile(p, data); err != nil {
		return nil, err
	}
	s.logger.Info("entity created", slog.String("path", p), slog.String("id", e.ID))
	return s.buildDetail(e.Kind, p, data)
}

// Update rewrites the entity stored under kind and name. ifMatch is compared
// with the current checksum; an empty value skips the check. Frontmatter keys
// already on disk keep their values and order unless e overrides them. When
// e.Name differs from name the document is moved to its new path.
func (s *Service) Update(_ context.Context, kind entity.Kind, name string, e *entity.Entity, ifMatch string) (*EntityDetail, error) {
	e.Kind = kind
	if err := validate(e); err != nil {
		return nil, err
	}
	oldPath := entity.PathFor(kind, name)
	existing, err := s.read(oldPath)
	if err != nil {
		return nil, err
	}
	if !checksum.Match(ifMatch, checksum.Sum(existing)) {
		return nil, apperr.ErrConflict
	}
	current, err := document.Decode(kind, string(existing), s.cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", oldPath, err)
	}
	if e.ID == "" {
		e.ID = current.Entity.ID
	}
	keepBody(e, current.Entity)

	newPath := e.Path()
	if newPath != oldPath {
		exists, err := s.store.Exists(newPath)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperr.ErrAlreadyExists
		}
	}

	text, err := document.Encode(e, current.Original, s.cfg.Mode)
	if err != nil {
		return nil, err
	}
	data := []byte(text)
	if err := s.store.Write(oldPath, data); err != nil {
		return nil, err
	}
	if newPath != oldPath {
		if err := s.store.Move(oldPath, newPath); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return nil, apperr.ErrAlreadyExists
			}
			return nil, err
		}
		if err := s.db.DeleteEntity(oldPath); err != nil {
			return nil, err
		}
		s.logger.Info("entity renamed", slog.String("from", oldPath), slog.String("to", newPath))
	}
	if err := s.IndexFile(newPath, data); err != nil {
		return nil, err
	}
	return s.buildDetail(kind, newPath, data)
}

// keepBody carries over the sections and preamble of cur that e does not
// mention. A heading sent with an empty body still clears it.
func keepBody(e, cur *entity.Entity) {
	for _, s := range cur.Sections.Entries() {
		if !e.Sections.Has(s.Heading) {
			e.Sections = e.Sections.With(s.Heading, s.Body)
		}
	}
	if e.Preamble == "" {
		e.Preamble = cur.Preamble
	}
}

// PatchFrontmatter overlays known onto the frontmatter stored on disk and
// leaves the body byte for byte. Keys holding frontmatter.Absent are removed;
// empty strings and nulls are written as given. The name key cannot be
// patched because it is tied to the file name.
func (s *Service) PatchFrontmatter(_ context.Context, kind entity.Kind, name string, known *frontmatter.Record, ifMatch string) (*EntityDetail, error) {
	if known.Has("name") {
		return nil, fmt.Errorf("%w: name can only change through update", apperr.ErrInvalidEntity)
	}
	p := entity.PathFor(kind, name)
	existing, err := s.read(p)
	if err != nil {
		return nil, err
	}
	if !checksum.Match(ifMatch, checksum.Sum(existing)) {
		return nil, apperr.ErrConflict
	}
	block, body, ok := frontmatter.Split(string(existing))
	current := frontmatter.NewRecord()
	if ok {
		if current, err = frontmatter.Decode(block); err != nil {
			return nil, err
		}
	}
	head, err := frontmatter.Wrap(frontmatter.MergeKnown(current, known))
	if err != nil {
		return nil, err
	}
	if !ok && head != "" {
		body = "\n" + body
	}
	data := []byte(head + body)
	if err := s.store.Write(p, data); err != nil {
		return nil, err
	}
	if err := s.IndexFile(p, data); err != nil {
		return nil, err
	}
	return s.buildDetail(kind, p, data)
}

// Delete removes an entity from storage and index.
func (s *Service) Delete(_ context.Context, kind entity.Kind, name string) error {
	p := entity.PathFor(kind, name)
	if err := s.store.Delete(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteEntity(p)
}

// List returns a page of entity summaries. An empty kind lists every kind.
func (s *Service) List(_ context.Context, kind entity.Kind, limit, offset int) ([]models.EntitySummary, int, error) {
	rows, total, err := s.db.ListEntities(string(kind), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.EntitySummary, len(rows))
	for i, r := range rows {
		items[i] = r.Summary()
		items[i].Tags = nonNilSlice(r.Tags)
	}
	return items, total, nil
}

// Timeline returns dated entities in story order with display strings in the
// configured locale.
func (s *Service) Timeline(_ context.Context, kind entity.Kind) ([]models.TimelineEntry, error) {
	rows, err := s.db.Timeline(string(kind))
	if err != nil {
		return nil, err
	}
	out := make([]models.TimelineEntry, len(rows))
	for i, r := range rows {
		t := time.UnixMilli(r.DateMillis).In(s.cfg.Location)
		out[i] = models.TimelineEntry{
			EntitySummary: r.Summary(),
			DateText:      r.DateText,
			DateMillis:    r.DateMillis,
			Display: eventdate.Display(t, eventdate.DisplayOptions{
				Locale:    s.cfg.Locale,
				IsBCE:     r.IsBCE,
				Precision: eventdate.Precision(r.Precision),
			}),
			Precision:   r.Precision,
			Approximate: r.Approximate,
			IsBCE:       r.IsBCE,
		}
	}
	return out, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.SearchHit, error) {
	hits, err := s.db.Search(query, limit)
	return nonNilSlice(hits), err
}

// Backlinks returns the paths of documents that link to the entity's name.
func (s *Service) Backlinks(_ context.Context, name string) ([]string, error) {
	bl, err := s.db.Backlinks(name)
	return nonNilSlice(bl), err
}

// ParseDate parses text with the configured locale and time zone. Relative
// expressions resolve against the current time.
func (s *Service) ParseDate(_ context.Context, text string) eventdate.Result {
	return eventdate.Parse(text, s.dateOptions(s.now()))
}

// Sync brings the index up to date with the vault.
func (s *Service) Sync(_ context.Context) error {
	return index.Sync(s.db, s.store, s.cfg.IndexOptions(), s.logger)
}

// IndexFile decodes data and upserts it into the index.
func (s *Service) IndexFile(p string, data []byte) error {
	row, body, links, err := index.BuildRow(p, data, s.cfg.IndexOptions(), s.logger)
	if err != nil {
		return err
	}
	return s.db.UpsertEntity(row, body, links)
}

func (s *Service) read(p string) ([]byte, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) dateOptions(ref time.Time) eventdate.Options {
	return eventdate.Options{
		ForwardDate: s.cfg.ForwardDate,
		Location:    s.cfg.Location,
		Locale:      s.cfg.Locale,
		Reference:   ref,
	}
}

// buildDetail constructs an EntityDetail from raw data without re-reading the file.
func (s *Service) buildDetail(kind entity.Kind, p string, data []byte) (*EntityDetail, error) {
	d, err := document.Decode(kind, string(data), s.cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	if d.Strategy == sections.StrategyLines {
		s.logger.Warn("section heading pattern matched nothing, used line scanner",
			slog.String("path", p))
	}
	name := d.Entity.Name
	if name == "" {
		name = strings.TrimSuffix(path.Base(p), ".md")
		d.Entity.Name = name
	}
	bl, err := s.db.Backlinks(name)
	if err != nil {
		return nil, err
	}
	detail := &EntityDetail{
		Path:      p,
		Checksum:  checksum.Sum(data),
		Entity:    d.Entity,
		Tags:      nonNilSlice(d.Tags),
		Links:     nonNilSlice(d.Links),
		Backlinks: nonNilSlice(bl),
		Strategy:  d.Strategy,
		Content:   string(data),
		UpdatedAt: s.now().UTC(),
	}
	if text := d.DateText(); text != "" {
		res := eventdate.Parse(text, s.dateOptions(time.Time{}))
		detail.Date = &res
	}
	return detail, nil
}

func validate(e *entity.Entity) error {
	if e == nil {
		return fmt.Errorf("%w: missing entity", apperr.ErrInvalidEntity)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name is required", apperr.ErrInvalidEntity)
	}
	if _, err := entity.ParseKind(string(e.Kind)); err != nil {
		return err
	}
	if e.Fields == nil {
		e.Fields = frontmatter.NewRecord()
	}
	if e.CustomFields == nil {
		e.CustomFields = frontmatter.NewRecord()
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
