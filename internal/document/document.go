// Package document converts between story entities and their Markdown files:
// a YAML frontmatter block followed by "##" sections.
package document

import (
	"fmt"
	"strings"

	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/frontmatter"
	"github.com/starford/saga/internal/sections"
)

// DateField is the frontmatter key holding an entity's story date.
const DateField = "dateTime"

// Decoded is the read-path result for one document.
type Decoded struct {
	Entity *entity.Entity
	// Original is the frontmatter as found on disk, nil when the file has none.
	Original *frontmatter.Record
	Body     string
	Strategy sections.Strategy
	Links    []string
	Tags     []string
}

// DateText returns the raw story date of the entity, if any.
func (d *Decoded) DateText() string {
	return d.Entity.Fields.String(DateField)
}

// Decode parses text as a document of the given kind. Schema fields missing
// from the frontmatter get their defaults (empty lists for list fields).
// Section fields still stored in frontmatter are moved into sections when the
// body has no such heading. Custom fields are collected according to mode.
// Invalid YAML is an error; a missing block is not.
func Decode(kind entity.Kind, text string, mode entity.CustomFieldsMode) (*Decoded, error) {
	fm, err := frontmatter.Parse(text)
	if err != nil {
		return nil, err
	}
	body := text
	if _, rest, ok := frontmatter.Split(text); ok {
		body = rest
	}
	secs, strategy := sections.ParseReport(body)
	schema := entity.SchemaFor(kind)

	e := &entity.Entity{
		Kind:         kind,
		ID:           scalarString(fm, "id"),
		Name:         scalarString(fm, "name"),
		Fields:       frontmatter.NewRecord(),
		CustomFields: frontmatter.NewRecord(),
	}
	for _, f := range schema.Fields {
		switch f.Category {
		case entity.Direct:
			if f.Key == "id" || f.Key == "name" {
				continue
			}
			if v, ok := fm.Get(f.Key); ok {
				e.Fields.Set(f.Key, frontmatter.CloneValue(v))
			} else if f.List {
				e.Fields.Set(f.Key, []any{})
			}
		case entity.Section:
			if secs.Has(f.Heading) {
				continue
			}
			if s := fm.String(f.Key); s != "" {
				secs = secs.With(f.Heading, strings.TrimSpace(s))
			}
		}
	}
	e.Sections = secs
	e.Preamble = sections.Preamble(body)

	switch mode {
	case entity.Nested:
		if v, ok := fm.Get(entity.CustomFieldsKey); ok {
			if r, ok := v.(*frontmatter.Record); ok {
				e.CustomFields = r.WithoutDeep(frontmatter.PositionKey)
			}
		}
	default:
		for _, k := range fm.Keys() {
			if schema.Known(k) || k == frontmatter.PositionKey {
				continue
			}
			v, _ := fm.Get(k)
			e.CustomFields.Set(k, frontmatter.CloneValue(v))
		}
	}

	return &Decoded{
		Entity:   e,
		Original: fm,
		Body:     body,
		Strategy: strategy,
		Links:    extractLinks(text),
		Tags:     extractTags(body, fm),
	}, nil
}

// Encode writes e as a document. original is the frontmatter currently on
// disk; its keys and order survive. Schema sections are written first in
// schema order, each with its heading even when empty, followed by any other
// sections the entity carries. A preamble is written above the first heading.
func Encode(e *entity.Entity, original *frontmatter.Record, mode entity.CustomFieldsMode) (string, error) {
	fm := entity.BuildFrontmatter(e.Kind, e.Values(), nil, entity.BuildOptions{
		CustomFieldsMode: mode,
		CustomFields:     e.CustomFields,
		Original:         original,
	})
	head, err := frontmatter.Wrap(fm)
	if err != nil {
		return "", fmt.Errorf("encode %s %q: %w", e.Kind, e.Name, err)
	}

	var ordered []sections.Section
	seen := make(map[string]bool)
	for _, f := range entity.SchemaFor(e.Kind).Sections() {
		body, _ := e.Sections.Get(f.Heading)
		ordered = append(ordered, sections.Section{Heading: f.Heading, Body: body})
		seen[f.Heading] = true
	}
	for _, s := range e.Sections.Entries() {
		if !seen[s.Heading] {
			ordered = append(ordered, s)
		}
	}
	body := sections.Render(sections.FromEntries(ordered...))
	if p := strings.TrimSpace(e.Preamble); p != "" {
		body = p + "\n\n" + body
	}
	if head == "" {
		return body, nil
	}
	return head + "\n" + body, nil
}

func scalarString(r *frontmatter.Record, key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	switch v.(type) {
	case *frontmatter.Record, []any:
		return ""
	}
	return fmt.Sprint(v)
}
