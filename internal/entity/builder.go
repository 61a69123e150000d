package entity

import (
	"reflect"

	"github.com/starford/saga/internal/frontmatter"
)

// BuildOptions carries the inputs of BuildFrontmatter besides the entity values.
type BuildOptions struct {
	CustomFieldsMode CustomFieldsMode
	CustomFields     *frontmatter.Record
	// Original is the frontmatter currently on disk, if any.
	Original *frontmatter.Record
}

// BuildFrontmatter merges entity values into the on-disk frontmatter of a
// document of the given kind.
//
// Every key of opts.Original is kept in its original position. A key is
// written when it is whitelisted for the kind, listed in extra, already on
// disk, or (in flatten mode) a custom field. Non-empty values overwrite. An
// empty value (nil, "", empty list, empty record) is written only over a key
// that already exists; otherwise the key is left out. Section keys are never
// written. New keys follow the seeded ones in fields order, then custom field
// order. The position key is removed at every depth. Neither fields nor
// opts.Original is modified.
func BuildFrontmatter(kind Kind, fields *frontmatter.Record, extra []string, opts BuildOptions) *frontmatter.Record {
	schema := SchemaFor(kind)
	nested := opts.CustomFieldsMode == Nested

	allowed := make(map[string]bool)
	for _, k := range schema.Whitelist() {
		allowed[k] = true
	}
	for _, k := range extra {
		allowed[k] = true
	}
	for _, k := range opts.Original.Keys() {
		allowed[k] = true
	}
	if !nested {
		for _, k := range opts.CustomFields.Keys() {
			allowed[k] = true
		}
	}

	lookup := func(k string) (any, bool) {
		if k == CustomFieldsKey && nested {
			if opts.CustomFields == nil {
				return nil, false
			}
			return opts.CustomFields, true
		}
		if v, ok := fields.Get(k); ok {
			return v, true
		}
		if !nested {
			return opts.CustomFields.Get(k)
		}
		return nil, false
	}

	out := opts.Original.Clone()
	apply := func(k string) {
		if !allowed[k] || schema.LongForm(k) {
			return
		}
		v, ok := lookup(k)
		if !ok {
			return
		}
		if isEmpty(v) && !opts.Original.Has(k) {
			return
		}
		out.Set(k, frontmatter.CloneValue(v))
	}

	// Seeded keys first so Set keeps their positions, then new keys in
	// declaration order.
	order := append([]string(nil), opts.Original.Keys()...)
	order = append(order, fields.Keys()...)
	if nested {
		order = append(order, CustomFieldsKey)
	} else {
		order = append(order, opts.CustomFields.Keys()...)
	}
	done := make(map[string]bool, len(order))
	for _, k := range order {
		if done[k] {
			continue
		}
		done[k] = true
		apply(k)
	}
	return out.WithoutDeep(frontmatter.PositionKey)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case *frontmatter.Record:
		return t.Len() == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
