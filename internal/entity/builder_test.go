package entity

import (
	"reflect"
	"testing"

	"github.com/starford/saga/internal/frontmatter"
)

func TestBuildFrontmatter_EmptyCustomFieldKeptWhenOnDisk(t *testing.T) {
	custom := frontmatter.Of("customField1", "")

	got := BuildFrontmatter(KindCharacter, frontmatter.Of("name", "Aria"), nil, BuildOptions{
		CustomFieldsMode: Flatten,
		CustomFields:     custom,
		Original:         frontmatter.Of("customField1", ""),
	})
	if v, ok := got.Get("customField1"); !ok || v != "" {
		t.Errorf("customField1 = %#v (present %v), want kept empty", v, ok)
	}

	got = BuildFrontmatter(KindCharacter, frontmatter.Of("name", "Aria"), nil, BuildOptions{
		CustomFieldsMode: Flatten,
		CustomFields:     custom,
		Original:         frontmatter.NewRecord(),
	})
	if got.Has("customField1") {
		t.Error("customField1 written although it was empty and not on disk")
	}
}

func TestBuildFrontmatter_Preservation(t *testing.T) {
	original := frontmatter.Of(
		"name", "Aria",
		"mood", "grim",
		"status", "alive",
		"traits", []any{"brave"},
		"legacy", nil,
	)
	fields := frontmatter.Of("name", "Aria", "status", "", "traits", []any{})

	got := BuildFrontmatter(KindCharacter, fields, nil, BuildOptions{Original: original})

	for _, k := range original.Keys() {
		if !got.Has(k) {
			t.Errorf("key %q dropped", k)
		}
	}
	if v, _ := got.Get("mood"); v != "grim" {
		t.Errorf("unknown key mood = %#v, want untouched", v)
	}
	if v, _ := got.Get("status"); v != "" {
		t.Errorf("status = %#v, want overwritten with empty", v)
	}
	if v, _ := got.Get("traits"); !reflect.DeepEqual(v, []any{}) {
		t.Errorf("traits = %#v, want empty list", v)
	}
}

func TestBuildFrontmatter_NonPollution(t *testing.T) {
	fields := frontmatter.Of(
		"name", "Aria",
		"status", "",
		"affiliation", nil,
		"traits", []string{},
		"groups", []any{},
	)
	got := BuildFrontmatter(KindCharacter, fields, nil, BuildOptions{
		CustomFields: frontmatter.Of("nickname", nil),
	})
	if want := []string{"name"}; !reflect.DeepEqual(got.Keys(), want) {
		t.Errorf("keys = %v, want %v", got.Keys(), want)
	}
}

func TestBuildFrontmatter_Ordering(t *testing.T) {
	original := frontmatter.Of("zeta", 1, "name", "Old", "alpha", 2)
	fields := frontmatter.Of("status", "alive", "name", "New", "affiliation", "Guild")

	got := BuildFrontmatter(KindCharacter, fields, nil, BuildOptions{
		CustomFields: frontmatter.Of("mood", "grim"),
		Original:     original,
	})

	want := []string{"zeta", "name", "alpha", "status", "affiliation", "mood"}
	if !reflect.DeepEqual(got.Keys(), want) {
		t.Errorf("keys = %v, want %v", got.Keys(), want)
	}
	if v, _ := got.Get("name"); v != "New" {
		t.Errorf("name = %#v", v)
	}
}

func TestBuildFrontmatter_SectionKeysNeverWritten(t *testing.T) {
	fields := frontmatter.Of("name", "Aria", "description", "Tall", "backstory", "Born")
	got := BuildFrontmatter(KindCharacter, fields, []string{"description"}, BuildOptions{
		Original: frontmatter.Of("backstory", "old text"),
	})
	if got.Has("description") {
		t.Error("description written to frontmatter")
	}
	if v, _ := got.Get("backstory"); v != "old text" {
		t.Errorf("seeded backstory = %#v, want left as on disk", v)
	}
}

func TestBuildFrontmatter_WhitelistAndExtra(t *testing.T) {
	fields := frontmatter.Of("name", "Aria", "secret", "x", "allowed", "y")
	got := BuildFrontmatter(KindCharacter, fields, []string{"allowed"}, BuildOptions{})
	if got.Has("secret") {
		t.Error("non-whitelisted key written")
	}
	if v, _ := got.Get("allowed"); v != "y" {
		t.Errorf("extra key allowed = %#v", v)
	}
}

func TestBuildFrontmatter_FieldWinsOverCustom(t *testing.T) {
	got := BuildFrontmatter(KindCharacter,
		frontmatter.Of("status", "alive"), nil,
		BuildOptions{CustomFields: frontmatter.Of("status", "dead")})
	if v, _ := got.Get("status"); v != "alive" {
		t.Errorf("status = %#v", v)
	}
}

func TestBuildFrontmatter_Nested(t *testing.T) {
	custom := frontmatter.Of(
		"mood", "",
		"position", 4,
		"inventory", []any{frontmatter.Of("position", 1, "name", "rope")},
		"stats", frontmatter.Of("hp", nil),
	)
	got := BuildFrontmatter(KindCharacter, frontmatter.Of("name", "Aria"), nil, BuildOptions{
		CustomFieldsMode: Nested,
		CustomFields:     custom,
	})
	if got.Has("mood") {
		t.Error("nested custom field flattened")
	}
	v, ok := got.Get(CustomFieldsKey)
	if !ok {
		t.Fatal("customFields missing")
	}
	nested := v.(*frontmatter.Record)
	if want := []string{"mood", "inventory", "stats"}; !reflect.DeepEqual(nested.Keys(), want) {
		t.Errorf("nested keys = %v, want %v", nested.Keys(), want)
	}
	inv, _ := nested.Get("inventory")
	if inv.([]any)[0].(*frontmatter.Record).Has("position") {
		t.Error("position kept inside nested list")
	}
	if custom.Len() != 4 {
		t.Error("custom fields input mutated")
	}
}

func TestBuildFrontmatter_NestedEmptyRule(t *testing.T) {
	opts := BuildOptions{CustomFieldsMode: Nested, CustomFields: frontmatter.NewRecord()}
	if got := BuildFrontmatter(KindItem, frontmatter.Of("name", "Rope"), nil, opts); got.Has(CustomFieldsKey) {
		t.Error("empty customFields written without an on-disk key")
	}
	opts.Original = frontmatter.Of(CustomFieldsKey, frontmatter.Of("old", 1))
	got := BuildFrontmatter(KindItem, frontmatter.Of("name", "Rope"), nil, opts)
	v, ok := got.Get(CustomFieldsKey)
	if !ok || v.(*frontmatter.Record).Len() != 0 {
		t.Errorf("customFields = %#v (present %v), want kept and empty", v, ok)
	}
}

func TestBuildFrontmatter_PositionStripped(t *testing.T) {
	original := frontmatter.Of("position", frontmatter.Of("start", 1), "name", "A",
		"meta", frontmatter.Of("position", 2, "k", "v"))
	got := BuildFrontmatter(KindLocation, frontmatter.Of("name", "A", "position", 9), []string{"position"},
		BuildOptions{Original: original})
	if got.Has("position") {
		t.Error("top-level position kept")
	}
	meta, _ := got.Get("meta")
	if meta.(*frontmatter.Record).Has("position") {
		t.Error("nested position kept")
	}
	if !original.Has("position") {
		t.Error("original mutated")
	}
}

func TestBuildFrontmatter_OriginalNotMutated(t *testing.T) {
	original := frontmatter.Of("name", "Old", "tags", []any{"a"})
	before := original.Clone()
	BuildFrontmatter(KindEvent, frontmatter.Of("name", "New", "tags", []any{"b"}), nil,
		BuildOptions{Original: original})
	if !reflect.DeepEqual(original, before) {
		t.Error("original frontmatter was modified")
	}
}

func TestBuildFrontmatter_Deterministic(t *testing.T) {
	fields := frontmatter.Of("name", "Battle", "dateTime", "500 BCE", "tags", []any{"war"})
	opts := BuildOptions{
		CustomFields: frontmatter.Of("weather", "rain"),
		Original:     frontmatter.Of("source", "notes", "status", ""),
	}
	first := BuildFrontmatter(KindEvent, fields, nil, opts)
	for i := 0; i < 5; i++ {
		if got := BuildFrontmatter(KindEvent, fields, nil, opts); !reflect.DeepEqual(got, first) {
			t.Fatalf("call %d differs: %v vs %v", i, got.Keys(), first.Keys())
		}
	}
}

func TestBuildFrontmatter_UnknownKind(t *testing.T) {
	got := BuildFrontmatter(Kind("spaceship"), frontmatter.Of("name", "Nostromo", "crew", 7), []string{"crew"},
		BuildOptions{Original: frontmatter.Of("class", "tug")})
	if got.Has("name") {
		t.Error("unknown kind should have an empty whitelist")
	}
	if v, _ := got.Get("crew"); v != 7 {
		t.Errorf("extra key crew = %#v", v)
	}
	if !got.Has("class") {
		t.Error("seeded key dropped")
	}
}
