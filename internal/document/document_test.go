package document

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/frontmatter"
	"github.com/starford/saga/internal/sections"
)

const characterDoc = `---
id: c-1
name: Aria
status: alive
mood: grim
affiliation: ""
traits:
  - brave
position:
  start: 1
---

## Description
Tall, met [[Old Town|the town]] early. #hero

## Backstory
`

func TestDecode_Character(t *testing.T) {
	d, err := Decode(entity.KindCharacter, characterDoc, entity.Flatten)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	e := d.Entity
	if e.ID != "c-1" || e.Name != "Aria" {
		t.Errorf("id/name = %q/%q", e.ID, e.Name)
	}
	if got := e.Fields.String("status"); got != "alive" {
		t.Errorf("status = %q", got)
	}
	if v, _ := e.Fields.Get("groups"); !reflect.DeepEqual(v, []any{}) {
		t.Errorf("groups default = %#v", v)
	}
	if got := e.CustomFields.Keys(); !reflect.DeepEqual(got, []string{"mood"}) {
		t.Errorf("custom fields = %v", got)
	}
	if got := e.Section("backstory"); got != "" || !e.Sections.Has("Backstory") {
		t.Errorf("backstory = %q (present %v)", got, e.Sections.Has("Backstory"))
	}
	if d.Strategy != sections.StrategyPattern {
		t.Errorf("strategy = %s", d.Strategy)
	}
	if !reflect.DeepEqual(d.Links, []string{"Old Town"}) {
		t.Errorf("links = %v", d.Links)
	}
	if !reflect.DeepEqual(d.Tags, []string{"hero"}) {
		t.Errorf("tags = %v", d.Tags)
	}
}

func TestEncode_RoundTripKeepsFrontmatter(t *testing.T) {
	d, err := Decode(entity.KindCharacter, characterDoc, entity.Flatten)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, err := Encode(d.Entity, d.Original, entity.Flatten)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "position") {
		t.Errorf("position written: %q", out)
	}
	if !strings.Contains(out, `affiliation: ""`) {
		t.Errorf("empty on-disk key lost: %q", out)
	}
	if strings.Contains(out, "groups") {
		t.Errorf("defaulted empty list written: %q", out)
	}
	if !strings.HasSuffix(out, "## Backstory\n") {
		t.Errorf("empty section heading missing: %q", out)
	}

	fm, err := frontmatter.Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"id", "name", "status", "mood", "affiliation", "traits"}
	if !reflect.DeepEqual(fm.Keys(), want) {
		t.Errorf("keys = %v, want %v", fm.Keys(), want)
	}

	again, err := Decode(entity.KindCharacter, out, entity.Flatten)
	if err != nil {
		t.Fatalf("Decode again: %v", err)
	}
	if !reflect.DeepEqual(again.Entity.Sections.Entries(), d.Entity.Sections.Entries()) {
		t.Errorf("sections changed: %+v", again.Entity.Sections.Entries())
	}
}

func TestEncode_NewEntity(t *testing.T) {
	e := &entity.Entity{
		Kind:         entity.KindEvent,
		ID:           "e-1",
		Name:         "Fall of the Keep",
		Fields:       frontmatter.Of("dateTime", "500 BCE", "status", "", "tags", []any{"war"}),
		CustomFields: frontmatter.Of("weather", "rain"),
		Sections: sections.FromEntries(
			sections.Section{Heading: "Notes", Body: "extra"},
			sections.Section{Heading: "Description", Body: "Siege."},
		),
	}
	out, err := Encode(e, nil, entity.Flatten)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "status") {
		t.Errorf("empty new key written: %q", out)
	}
	d, err := Decode(entity.KindEvent, out, entity.Flatten)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := d.Entity.Sections.Headings(); !reflect.DeepEqual(got, []string{"Description", "Outcome", "Notes"}) {
		t.Errorf("headings = %v", got)
	}
	if got := d.DateText(); got != "500 BCE" {
		t.Errorf("date = %q", got)
	}
	if got := d.Entity.CustomFields.String("weather"); got != "rain" {
		t.Errorf("weather = %q", got)
	}
}

func TestEncode_WritesPreambleAboveSections(t *testing.T) {
	doc := "---\nname: Keep\n---\nSketch only.\n\n## Description\nStone walls\n"
	d, err := Decode(entity.KindLocation, doc, entity.Flatten)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Entity.Preamble != "Sketch only." {
		t.Fatalf("preamble = %q", d.Entity.Preamble)
	}
	out, err := Encode(d.Entity, d.Original, entity.Flatten)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(out, "---\n\nSketch only.\n\n## Description\nStone walls\n") {
		t.Errorf("encoded =\n%s", out)
	}
	again, err := Decode(entity.KindLocation, out, entity.Flatten)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if again.Entity.Preamble != "Sketch only." {
		t.Errorf("preamble after round trip = %q", again.Entity.Preamble)
	}
}

func TestDecode_NestedCustomFields(t *testing.T) {
	doc := "---\nname: Rope\ncustomFields:\n  knots: 3\n  position: 1\nextra: kept\n---\n"
	d, err := Decode(entity.KindItem, doc, entity.Nested)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := d.Entity.CustomFields.Keys(); !reflect.DeepEqual(got, []string{"knots"}) {
		t.Errorf("custom = %v", got)
	}
	out, err := Encode(d.Entity, d.Original, entity.Nested)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(out, "extra: kept") {
		t.Errorf("unknown key lost: %q", out)
	}
	if strings.Contains(out, "position") {
		t.Errorf("nested position written: %q", out)
	}
}

func TestDecode_NoFrontmatter(t *testing.T) {
	d, err := Decode(entity.KindReference, "## Content\nNotes here", entity.Flatten)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Original != nil {
		t.Errorf("original = %v, want nil", d.Original.Keys())
	}
	if got := d.Entity.Section("content"); got != "Notes here" {
		t.Errorf("content = %q", got)
	}
}

func TestDecode_InvalidYAML(t *testing.T) {
	_, err := Decode(entity.KindCharacter, "---\n: bad: {{{\n---\n", entity.Flatten)
	if !errors.Is(err, frontmatter.ErrInvalidYAML) {
		t.Fatalf("err = %v, want ErrInvalidYAML", err)
	}
}

func TestDecode_FallbackStrategyAndLegacySection(t *testing.T) {
	doc := "---\nname: Keep\nhistory: Built long ago.\n---\n  ## Description\nStone walls\n"
	d, err := Decode(entity.KindLocation, doc, entity.Flatten)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Strategy != sections.StrategyLines {
		t.Errorf("strategy = %s, want lines", d.Strategy)
	}
	if got := d.Entity.Section("description"); got != "Stone walls" {
		t.Errorf("description = %q", got)
	}
	if got := d.Entity.Section("history"); got != "Built long ago." {
		t.Errorf("history from frontmatter = %q", got)
	}
}

func TestExtractLinks(t *testing.T) {
	got := extractLinks("[[A]] [[B|bee]] [[A]] [[C#Section]] [[ ]]")
	if !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("links = %v", got)
	}
}
