package entity

import (
	"fmt"

	"github.com/starford/saga/internal/frontmatter"
	"github.com/starford/saga/internal/sections"
)

// CustomFieldsMode selects how user-defined fields are stored in frontmatter.
type CustomFieldsMode string

const (
	// Flatten writes custom fields as top-level keys.
	Flatten CustomFieldsMode = "flatten"
	// Nested writes custom fields under the customFields key.
	Nested CustomFieldsMode = "nested"
)

// ParseCustomFieldsMode maps "" to Flatten and rejects unknown values.
func ParseCustomFieldsMode(s string) (CustomFieldsMode, error) {
	switch CustomFieldsMode(s) {
	case "", Flatten:
		return Flatten, nil
	case Nested:
		return Nested, nil
	}
	return "", fmt.Errorf("unknown custom fields mode %q", s)
}

// Entity is the in-memory form of one story document.
type Entity struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	// Fields holds the remaining frontmatter-eligible values in declaration order.
	Fields       *frontmatter.Record `json:"fields"`
	CustomFields *frontmatter.Record `json:"customFields,omitempty"`
	Sections     sections.Map        `json:"sections"`
	// Preamble is free text above the first heading.
	Preamble string `json:"preamble,omitempty"`
}

// Values returns id and name followed by Fields, the shape the builder
// consumes. Keys of Fields named id or name are overridden by the struct.
func (e *Entity) Values() *frontmatter.Record {
	out := frontmatter.NewRecord()
	if e.ID != "" {
		out.Set("id", e.ID)
	}
	out.Set("name", e.Name)
	for _, k := range e.Fields.Keys() {
		if k == "id" || k == "name" {
			continue
		}
		v, _ := e.Fields.Get(k)
		out.Set(k, v)
	}
	return out
}

// Section returns the body of a section field by its schema key.
func (e *Entity) Section(key string) string {
	f, ok := SchemaFor(e.Kind).Field(key)
	if !ok || f.Category != Section {
		return ""
	}
	body, _ := e.Sections.Get(f.Heading)
	return body
}

// Path returns the vault-relative path of the entity document.
func (e *Entity) Path() string {
	return PathFor(e.Kind, e.Name)
}
