// Package entity describes the story-entity kinds, their frontmatter schemas,
// and the rules for turning an entity back into frontmatter.
package entity

import (
	"strings"

	"github.com/starford/saga/internal/apperr"
)

// Kind tags an entity and selects its schema.
type Kind string

const (
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
	KindEvent     Kind = "event"
	KindItem      Kind = "item"
	KindReference Kind = "reference"
	KindChapter   Kind = "chapter"
	KindScene     Kind = "scene"
	KindGroup     Kind = "group"
)

// Category says where a field lives in the document.
type Category int

const (
	// Direct fields are frontmatter keys.
	Direct Category = iota
	// Section fields are long-form text stored under a "##" heading.
	Section
	// Custom marks the container for user-defined fields.
	Custom
)

// CustomFieldsKey is the frontmatter key that holds custom fields in nested mode.
const CustomFieldsKey = "customFields"

// Field is one row of a kind's schema.
type Field struct {
	Key      string
	Category Category
	// Heading is the section title for Section fields.
	Heading string
	// List fields default to an empty list when missing.
	List bool
}

// Schema is the static field table of one kind.
type Schema struct {
	Kind   Kind
	Folder string
	// LinkSafe kinds have names that appear inside wiki links.
	LinkSafe bool
	Fields   []Field
}

func direct(keys ...string) []Field {
	out := make([]Field, len(keys))
	for i, k := range keys {
		out[i] = Field{Key: k, Category: Direct}
	}
	return out
}

func lists(keys ...string) []Field {
	out := direct(keys...)
	for i := range out {
		out[i].List = true
	}
	return out
}

func section(key, heading string) Field {
	return Field{Key: key, Category: Section, Heading: heading}
}

func fields(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return append(out, Field{Key: CustomFieldsKey, Category: Custom})
}

var linked = lists("linkedCharacters", "linkedLocations", "linkedEvents", "linkedItems", "linkedGroups")

var schemas = []Schema{
	{
		Kind: KindCharacter, Folder: "Characters", LinkSafe: true,
		Fields: fields(
			direct("id", "name", "status", "affiliation"),
			lists("traits", "relationships", "locations", "events", "groups"),
			direct("profileImagePath"),
			[]Field{section("description", "Description"), section("backstory", "Backstory")},
		),
	},
	{
		Kind: KindLocation, Folder: "Locations", LinkSafe: true,
		Fields: fields(
			direct("id", "name", "locationType", "region", "status", "parentLocation"),
			lists("characters", "events", "groups"),
			direct("profileImagePath"),
			[]Field{section("description", "Description"), section("history", "History")},
		),
	},
	{
		Kind: KindEvent, Folder: "Events", LinkSafe: true,
		Fields: fields(
			direct("id", "name", "dateTime", "status", "location"),
			lists("characters"),
			direct("isMilestone", "progress"),
			lists("dependencies", "groups"),
			direct("profileImagePath"),
			lists("tags"),
			[]Field{section("description", "Description"), section("outcome", "Outcome")},
		),
	},
	{
		Kind: KindItem, Folder: "Items", LinkSafe: true,
		Fields: fields(
			direct("id", "name", "isPlotCritical", "currentOwner"),
			lists("pastOwners"),
			direct("currentLocation"),
			lists("associatedEvents", "groups"),
			direct("profileImagePath"),
			[]Field{section("description", "Description"), section("history", "History")},
		),
	},
	{
		Kind: KindReference, Folder: "References",
		Fields: fields(
			direct("id", "name", "category"),
			lists("tags"),
			direct("profileImagePath"),
			[]Field{section("content", "Content")},
		),
	},
	{
		Kind: KindChapter, Folder: "Chapters",
		Fields: fields(
			direct("id", "name", "number"),
			lists("tags"),
			linked,
			direct("profileImagePath"),
			[]Field{section("summary", "Summary")},
		),
	},
	{
		Kind: KindScene, Folder: "Scenes",
		Fields: fields(
			direct("id", "name", "chapterId", "chapterName", "status", "priority"),
			lists("tags"),
			linked,
			direct("profileImagePath"),
			[]Field{section("content", "Content"), section("beats", "Beats")},
		),
	},
	{
		Kind: KindGroup, Folder: "Groups", LinkSafe: true,
		Fields: fields(
			direct("id", "name", "color"),
			lists("members", "tags"),
			direct("profileImagePath"),
			[]Field{section("description", "Description")},
		),
	},
}

var byKind = func() map[Kind]*Schema {
	m := make(map[Kind]*Schema, len(schemas))
	for i := range schemas {
		m[schemas[i].Kind] = &schemas[i]
	}
	return m
}()

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(schemas))
	for i, s := range schemas {
		out[i] = s.Kind
	}
	return out
}

// ParseKind accepts a kind name in any case, singular or plural
// ("Characters", "character").
func ParseKind(s string) (Kind, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	if _, ok := byKind[Kind(k)]; ok {
		return Kind(k), nil
	}
	for _, sc := range schemas {
		if strings.EqualFold(sc.Folder, k) {
			return sc.Kind, nil
		}
	}
	return "", apperr.ErrInvalidKind
}

// SchemaFor returns the schema of kind. An unknown kind yields an empty schema
// so callers degrade to an empty whitelist.
func SchemaFor(kind Kind) Schema {
	if s, ok := byKind[kind]; ok {
		return *s
	}
	return Schema{Kind: kind}
}

// Folder returns the vault folder for kind, or "" for an unknown kind.
func Folder(kind Kind) string {
	return SchemaFor(kind).Folder
}

// Whitelist returns the frontmatter-eligible keys in declaration order. The
// custom-fields container is included; flatten mode drops it at build time.
func (s Schema) Whitelist() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Category != Section {
			out = append(out, f.Key)
		}
	}
	return out
}

// LongForm reports whether key is stored as a section for this kind.
func (s Schema) LongForm(key string) bool {
	for _, f := range s.Fields {
		if f.Key == key && f.Category == Section {
			return true
		}
	}
	return false
}

// Sections returns the section fields in declaration order.
func (s Schema) Sections() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Category == Section {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the schema row for key.
func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Known reports whether key is part of the schema in any category.
func (s Schema) Known(key string) bool {
	_, ok := s.Field(key)
	return ok
}
