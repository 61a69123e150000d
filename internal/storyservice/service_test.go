package storyservice

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/checksum"
	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/frontmatter"
	"github.com/starford/saga/internal/sections"
	"github.com/starford/saga/internal/testutil"
)

func testService(t *testing.T, cfg Config) (*Service, string) {
	t.Helper()
	vaultDir, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	return NewService(store, db, cfg, testutil.Logger()), vaultDir
}

func newCharacter(name string) *entity.Entity {
	return &entity.Entity{
		Kind:         entity.KindCharacter,
		Name:         name,
		Fields:       frontmatter.Of("status", "alive"),
		CustomFields: frontmatter.NewRecord(),
		Sections:     sections.FromEntries(sections.Section{Heading: "Description", Body: "Tall."}),
	}
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := testService(t, Config{})
	ctx := context.Background()

	created, err := svc.Create(ctx, newCharacter("Aria"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Path != "Characters/Aria.md" {
		t.Errorf("path = %q", created.Path)
	}
	if created.Entity.ID == "" {
		t.Error("expected generated id")
	}

	got, err := svc.Get(ctx, entity.KindCharacter, "Aria")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Entity.ID != created.Entity.ID || got.Entity.Fields.String("status") != "alive" {
		t.Errorf("entity = %+v", got.Entity)
	}
	if got.Entity.Section("description") != "Tall." {
		t.Errorf("description = %q", got.Entity.Section("description"))
	}
	if got.Checksum != created.Checksum {
		t.Errorf("checksum changed between create and get")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	svc, _ := testService(t, Config{})
	ctx := context.Background()
	if _, err := svc.Create(ctx, newCharacter("Aria")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, newCharacter("Aria")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreate_Invalid(t *testing.T) {
	svc, _ := testService(t, Config{})
	ctx := context.Background()
	if _, err := svc.Create(ctx, newCharacter("  ")); !errors.Is(err, apperr.ErrInvalidEntity) {
		t.Errorf("blank name err = %v", err)
	}
	e := newCharacter("Aria")
	e.Kind = "dragon"
	if _, err := svc.Create(ctx, e); !errors.Is(err, apperr.ErrInvalidKind) {
		t.Errorf("bad kind err = %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := testService(t, Config{})
	if _, err := svc.Get(context.Background(), entity.KindItem, "Nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_PreservesUnknownKeys(t *testing.T) {
	svc, vaultDir := testService(t, Config{})
	ctx := context.Background()
	testutil.WriteFile(t, vaultDir, "Characters/Aria.md",
		"---\nid: c-1\nname: Aria\nsecret: keep\nstatus: alive\n---\n\n## Description\nOld\n")

	current, err := svc.Get(ctx, entity.KindCharacter, "Aria")
	if err != nil {
		t.Fatal(err)
	}
	e := &entity.Entity{
		Name:         "Aria",
		Fields:       frontmatter.Of("status", "missing"),
		CustomFields: frontmatter.Of("mood", "grim"),
		Sections:     sections.FromEntries(sections.Section{Heading: "Description", Body: "New"}),
	}
	updated, err := svc.Update(ctx, entity.KindCharacter, "Aria", e, checksum.ETag(current.Checksum))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Entity.ID != "c-1" {
		t.Errorf("id = %q", updated.Entity.ID)
	}
	fm, err := frontmatter.Parse(updated.Content)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"id", "name", "secret", "status", "mood"}; !reflect.DeepEqual(fm.Keys(), want) {
		t.Errorf("keys = %v, want %v", fm.Keys(), want)
	}
	if fm.String("status") != "missing" || fm.String("secret") != "keep" {
		t.Errorf("frontmatter = %s", updated.Content)
	}
	if updated.Entity.Section("description") != "New" {
		t.Errorf("description = %q", updated.Entity.Section("description"))
	}
}

func TestUpdate_KeepsUnsentSectionsAndPreamble(t *testing.T) {
	svc, vaultDir := testService(t, Config{})
	ctx := context.Background()
	testutil.WriteFile(t, vaultDir, "Characters/Aria.md",
		"---\nname: Aria\nmood: grim\n---\nDrawn from the old notes.\n\n## Description\nTall.\n\n## Backstory\nBorn in Rome.\n\n## Notes\nhand-added\n")

	e := &entity.Entity{
		Name:         "Aria",
		Fields:       frontmatter.NewRecord(),
		CustomFields: frontmatter.NewRecord(),
		Sections:     sections.FromEntries(sections.Section{Heading: "Description", Body: "Taller."}),
	}
	if _, err := svc.Update(ctx, entity.KindCharacter, "Aria", e, ""); err != nil {
		t.Fatalf("Update: %v", err)
	}
	data, err := svc.store.Read("Characters/Aria.md")
	if err != nil {
		t.Fatal(err)
	}
	want := "---\n\nDrawn from the old notes.\n\n## Description\nTaller.\n\n## Backstory\nBorn in Rome.\n\n## Notes\nhand-added\n"
	if !strings.HasSuffix(string(data), want) {
		t.Errorf("document =\n%s\nwant suffix\n%s", data, want)
	}
	if !strings.Contains(string(data), "mood: grim") {
		t.Errorf("custom field lost:\n%s", data)
	}

	e = &entity.Entity{
		Name:         "Aria",
		Fields:       frontmatter.NewRecord(),
		CustomFields: frontmatter.NewRecord(),
		Sections:     sections.FromEntries(sections.Section{Heading: "Backstory", Body: ""}),
	}
	updated, err := svc.Update(ctx, entity.KindCharacter, "Aria", e, "")
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if got := updated.Entity.Section("backstory"); got != "" {
		t.Errorf("backstory = %q, want cleared", got)
	}
	if got := updated.Entity.Section("description"); got != "Taller." {
		t.Errorf("description = %q", got)
	}
	if got, _ := updated.Entity.Sections.Get("Notes"); got != "hand-added" {
		t.Errorf("Notes = %q", got)
	}
	if updated.Entity.Preamble != "Drawn from the old notes." {
		t.Errorf("preamble = %q", updated.Entity.Preamble)
	}
}

func TestUpdate_Conflict(t *testing.T) {
	svc, _ := testService(t, Config{})
	ctx := context.Background()
	if _, err := svc.Create(ctx, newCharacter("Aria")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Update(ctx, entity.KindCharacter, "Aria", newCharacter("Aria"), `"stale"`)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestUpdate_Rename(t *testing.T) {
	svc, _ := testService(t, Config{})
	ctx := context.Background()
	if _, err := svc.Create(ctx, newCharacter("Aria")); err != nil {
		t.Fatal(err)
	}
	updated, err := svc.Update(ctx, entity.KindCharacter, "Aria", newCharacter("Aria Vale"), "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Path != "Characters/Aria Vale.md" {
		t.Errorf("path = %q", updated.Path)
	}
	if _, err := svc.Get(ctx, entity.KindCharacter, "Aria"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old path still readable: %v", err)
	}
	items, total, err := svc.List(ctx, entity.KindCharacter, 10, 0)
	if err != nil || total != 1 || items[0].Name != "Aria Vale" {
		t.Errorf("list = %+v total %d err %v", items, total, err)
	}
}

func TestPatchFrontmatter_KeepsBodyAndUnknownKeys(t *testing.T) {
	svc, vault := testService(t, Config{})
	ctx := context.Background()
	doc := "---\nname: Keep\nsecret: 42\nposition:\n  x: 1\n---\n\n##  Description\n  odd   spacing  \n"
	testutil.WriteFile(t, vault, "Locations/Keep.md", doc)

	detail, err := svc.PatchFrontmatter(ctx, entity.KindLocation, "Keep",
		frontmatter.Of("region", "", "secret", frontmatter.Absent), "")
	if err != nil {
		t.Fatalf("PatchFrontmatter: %v", err)
	}
	data, err := svc.store.Read("Locations/Keep.md")
	if err != nil {
		t.Fatal(err)
	}
	want := "---\nname: Keep\nregion: \"\"\n---\n\n##  Description\n  odd   spacing  \n"
	if string(data) != want {
		t.Errorf("document =\n%q\nwant\n%q", data, want)
	}
	if detail.Checksum != checksum.Sum(data) {
		t.Error("detail checksum does not match disk")
	}

	if _, err := svc.PatchFrontmatter(ctx, entity.KindLocation, "Keep", frontmatter.Of("name", "Fort"), ""); !errors.Is(err, apperr.ErrInvalidEntity) {
		t.Errorf("name patch err = %v", err)
	}
	if _, err := svc.PatchFrontmatter(ctx, entity.KindLocation, "Keep", frontmatter.Of("a", 1), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale patch err = %v", err)
	}
	if _, err := svc.PatchFrontmatter(ctx, entity.KindLocation, "Nowhere", frontmatter.Of("a", 1), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing patch err = %v", err)
	}
}

func TestPatchFrontmatter_AddsBlockWhenMissing(t *testing.T) {
	svc, vault := testService(t, Config{})
	testutil.WriteFile(t, vault, "Items/Rope.md", "## Description\nHemp.\n")

	if _, err := svc.PatchFrontmatter(context.Background(), entity.KindItem, "Rope", frontmatter.Of("weight", 2), ""); err != nil {
		t.Fatalf("PatchFrontmatter: %v", err)
	}
	data, _ := svc.store.Read("Items/Rope.md")
	if string(data) != "---\nweight: 2\n---\n\n## Description\nHemp.\n" {
		t.Errorf("document = %q", data)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := testService(t, Config{})
	ctx := context.Background()
	if _, err := svc.Create(ctx, newCharacter("Aria")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, entity.KindCharacter, "Aria"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, entity.KindCharacter, "Aria"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if _, total, _ := svc.List(ctx, "", 10, 0); total != 0 {
		t.Errorf("total = %d after delete", total)
	}
}

func TestTimeline(t *testing.T) {
	svc, vaultDir := testService(t, Config{})
	ctx := context.Background()
	testutil.WriteFile(t, vaultDir, "Events/Founding.md", "---\nname: Founding\ndateTime: 2024-05-01T14:30\n---\n")
	testutil.WriteFile(t, vaultDir, "Events/Siege.md", "---\nname: Siege\ndateTime: 500 BCE\n---\n")
	testutil.WriteFile(t, vaultDir, "Events/Ides.md", "---\nname: Ides\ndateTime: 15 March 44 BC\n---\n")
	testutil.WriteFile(t, vaultDir, "Events/Someday.md", "---\nname: Someday\ndateTime: gibberish xyz\n---\n")
	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	entries, err := svc.Timeline(ctx, entity.KindEvent)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	var names, displays []string
	for _, e := range entries {
		names = append(names, e.Name)
		displays = append(displays, e.Display)
	}
	if want := []string{"Siege", "Ides", "Founding"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("order = %v, want %v", names, want)
	}
	if want := []string{"500 BCE", "March 15, 44 BCE", "May 1, 2024, 2:30 PM"}; !reflect.DeepEqual(displays, want) {
		t.Errorf("displays = %v, want %v", displays, want)
	}
	if entries[0].DateMillis >= 0 || !entries[0].IsBCE {
		t.Errorf("siege = %+v", entries[0])
	}
}

func TestSearchAndBacklinks(t *testing.T) {
	svc, vaultDir := testService(t, Config{})
	ctx := context.Background()
	testutil.WriteFile(t, vaultDir, "Characters/Aria.md", "---\nname: Aria\n---\n")
	testutil.WriteFile(t, vaultDir, "Locations/Keep.md", "---\nname: Keep\n---\n\n## Description\nHome of [[Aria]], built from moonstone.\n")
	if err := svc.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	hits, err := svc.Search(ctx, "moonstone", 10)
	if err != nil || len(hits) != 1 || hits[0].Path != "Locations/Keep.md" {
		t.Errorf("hits = %+v err %v", hits, err)
	}
	bl, err := svc.Backlinks(ctx, "Aria")
	if err != nil || !reflect.DeepEqual(bl, []string{"Locations/Keep.md"}) {
		t.Errorf("backlinks = %v err %v", bl, err)
	}
	detail, err := svc.Get(ctx, entity.KindCharacter, "Aria")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(detail.Backlinks, []string{"Locations/Keep.md"}) {
		t.Errorf("detail backlinks = %v", detail.Backlinks)
	}
}

func TestGet_DateAndFallbackStrategy(t *testing.T) {
	svc, vaultDir := testService(t, Config{Locale: "fr"})
	testutil.WriteFile(t, vaultDir, "Events/Armistice.md", "---\nname: Armistice\ndateTime: 11 novembre 1918\n---\n  ## Description\nSigned.\n")

	d, err := svc.Get(context.Background(), entity.KindEvent, "Armistice")
	if err != nil {
		t.Fatal(err)
	}
	if d.Date == nil || !d.Date.OK() {
		t.Fatalf("date = %+v", d.Date)
	}
	if got := d.Date.Start.Format("2006-01-02"); got != "1918-11-11" {
		t.Errorf("date = %s", got)
	}
	if d.Strategy != sections.StrategyLines {
		t.Errorf("strategy = %s", d.Strategy)
	}
	if d.Entity.Section("description") != "Signed." {
		t.Errorf("description = %q", d.Entity.Section("description"))
	}
}

func TestParseDate_UsesClock(t *testing.T) {
	svc, _ := testService(t, Config{})
	ref := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return ref }

	res := svc.ParseDate(context.Background(), "tomorrow")
	if !res.OK() {
		t.Fatalf("tomorrow not parsed: %+v", res)
	}
	if res.Start.Day() != 2 || res.Start.Month() != time.May {
		t.Errorf("tomorrow = %v", res.Start)
	}
	if res := svc.ParseDate(context.Background(), ""); res.Error == "" {
		t.Error("expected error for empty input")
	}
}

func TestNestedMode(t *testing.T) {
	svc, _ := testService(t, Config{Mode: entity.Nested})
	e := newCharacter("Bram")
	e.CustomFields = frontmatter.Of("favoriteFood", "bread")
	d, err := svc.Create(context.Background(), e)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(d.Content, "customFields:\n  favoriteFood: bread") {
		t.Errorf("content = %q", d.Content)
	}
	if d.Entity.CustomFields.String("favoriteFood") != "bread" {
		t.Errorf("custom = %v", d.Entity.CustomFields.Keys())
	}
}
