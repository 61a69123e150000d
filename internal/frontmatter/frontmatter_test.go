package frontmatter

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse_OrderAndTypes(t *testing.T) {
	doc := "---\nname: Aria\nage: 34\nheight: 1.7\nalive: true\ntags:\n  - hero\n  - mage\nborn: 2023-01-01\n---\n## Description\nText\n"
	r, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"name", "age", "height", "alive", "tags", "born"}
	if got := r.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if v, _ := r.Get("age"); v != 34 {
		t.Errorf("age = %#v, want 34", v)
	}
	if v, _ := r.Get("height"); v != 1.7 {
		t.Errorf("height = %#v, want 1.7", v)
	}
	if v, _ := r.Get("alive"); v != true {
		t.Errorf("alive = %#v, want true", v)
	}
	if v, _ := r.Get("tags"); !reflect.DeepEqual(v, []any{"hero", "mage"}) {
		t.Errorf("tags = %#v", v)
	}
	if v, _ := r.Get("born"); v != "2023-01-01" {
		t.Errorf("born = %#v, want literal string", v)
	}
}

func TestParse_NullAndBlankArePresent(t *testing.T) {
	r, err := Parse("---\nstatus: null\naffiliation:\nname: x\n---\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, k := range []string{"status", "affiliation"} {
		v, ok := r.Get(k)
		if !ok {
			t.Errorf("%s missing, want present with nil", k)
		}
		if v != nil {
			t.Errorf("%s = %#v, want nil", k, v)
		}
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	for _, doc := range []string{"", "## Description\nx", "--- not a block\n", "---\nname: open\n"} {
		r, err := Parse(doc)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", doc, err)
		}
		if r != nil {
			t.Errorf("Parse(%q) = %v, want nil", doc, r.Keys())
		}
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse("---\n: invalid: yaml: {{{\n---\nBody\n")
	if !errors.Is(err, ErrInvalidYAML) {
		t.Fatalf("err = %v, want ErrInvalidYAML", err)
	}
	_, err = Parse("---\n- a\n- b\n---\n")
	if !errors.Is(err, ErrInvalidYAML) {
		t.Fatalf("sequence root err = %v, want ErrInvalidYAML", err)
	}
}

func TestParse_EmptyBlock(t *testing.T) {
	r, err := Parse("---\n---\nbody")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r == nil || r.Len() != 0 {
		t.Fatalf("want empty record, got %v", r)
	}
}

func TestParse_NestedKeepsOrder(t *testing.T) {
	r, err := Parse("---\ncustomFields:\n  zeta: 1\n  alpha: two\n---\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, _ := r.Get("customFields")
	nested, ok := v.(*Record)
	if !ok {
		t.Fatalf("customFields = %T, want *Record", v)
	}
	if got := nested.Keys(); !reflect.DeepEqual(got, []string{"zeta", "alpha"}) {
		t.Errorf("nested keys = %v", got)
	}
}

func TestSplit_CRLFAndLeadingNewlines(t *testing.T) {
	block, body, ok := Split("\n\r\n---\r\nname: x\r\n---\r\n## A\r\n")
	if !ok {
		t.Fatal("expected block")
	}
	if strings.TrimSpace(block) != "name: x" {
		t.Errorf("block = %q", block)
	}
	if body != "## A\r\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	block, body, ok := Split("---\nname: x\n---")
	if !ok || block != "name: x\n" || body != "" {
		t.Errorf("Split = (%q, %q, %v)", block, body, ok)
	}
}

func TestEmit_EmptyStringQuoted(t *testing.T) {
	out, err := Emit(Of("a", "", "b", "x"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(out, `a: ""`) {
		t.Errorf("missing a: \"\" in %q", out)
	}
	if !strings.Contains(out, "b: x") {
		t.Errorf("missing b: x in %q", out)
	}
	r, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, ok := r.Get("a"); !ok || v != "" {
		t.Errorf("a = %#v (present %v), want empty string", v, ok)
	}
}

func TestEmit_EmptyRecord(t *testing.T) {
	for _, r := range []*Record{nil, NewRecord()} {
		out, err := Emit(r)
		if err != nil || out != "" {
			t.Errorf("Emit(empty) = %q, %v", out, err)
		}
	}
}

func TestEmit_NullAndAmbiguousStrings(t *testing.T) {
	out, err := Emit(Of("status", nil, "number", "42", "flag", "true", "note", "a: b"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(out, "status: null") {
		t.Errorf("null not emitted: %q", out)
	}
	r, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for k, want := range map[string]any{"number": "42", "flag": "true", "note": "a: b"} {
		if v, _ := r.Get(k); v != want {
			t.Errorf("%s = %#v, want %#v", k, v, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := Of(
		"name", "Test charrr ",
		"id", "c-1",
		"level", 3,
		"ratio", 0.25,
		"weight", 2.0,
		"active", false,
		"traits", []any{"brave", "loyal"},
		"customFields", Of("mood", "grim", "scars", 2),
		"note", "line one\nline two",
	)
	wrapped, err := Wrap(in)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	out, err := Parse(wrapped)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch\n in: %s\nout: %s", mustJSON(t, in), mustJSON(t, out))
	}
}

func TestEmit_WholeFloatKeepsDecimalPoint(t *testing.T) {
	got, err := Emit(Of("score", 1.0, "level", 1))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if want := "score: 1.0\nlevel: 1\n"; got != want {
		t.Errorf("Emit = %q, want %q", got, want)
	}
	r, err := Parse("---\nscore: 1.0\n---\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, _ := r.Get("score"); v != 1.0 {
		t.Errorf("score = %#v, want float64 1", v)
	}
}

func TestMergeKnown(t *testing.T) {
	existing := Of("unknown", "keep", "status", "alive", "position", Of("start", 1), "gone", "x")
	known := Of("status", "", "gone", Absent, "name", nil)

	got := MergeKnown(existing, known)

	want := []string{"unknown", "status", "name"}
	if keys := got.Keys(); !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	if v, _ := got.Get("status"); v != "" {
		t.Errorf("status = %#v, want empty string written through", v)
	}
	if !existing.Has("gone") || !existing.Has("position") {
		t.Error("existing record was mutated")
	}
}

func TestMergeKnown_NilExisting(t *testing.T) {
	got := MergeKnown(nil, Of("a", 1))
	if v, _ := got.Get("a"); v != 1 {
		t.Errorf("a = %#v", v)
	}
}

func TestRecord_DeleteAndSetKeepOrder(t *testing.T) {
	r := Of("a", 1, "b", 2, "c", 3)
	r.Delete("b")
	r.Set("a", 10)
	r.Set("b", 20)
	if got := r.Keys(); !reflect.DeepEqual(got, []string{"a", "c", "b"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestRecord_JSON(t *testing.T) {
	var r Record
	if err := r.UnmarshalJSON([]byte(`{"z":1,"a":[true,"x"],"m":{"k":1.5},"n":null}`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got := r.Keys(); !reflect.DeepEqual(got, []string{"z", "a", "m", "n"}) {
		t.Errorf("keys = %v", got)
	}
	if v, _ := r.Get("z"); v != 1 {
		t.Errorf("z = %#v, want int 1", v)
	}
	out := mustJSON(t, &r)
	if out != `{"z":1,"a":[true,"x"],"m":{"k":1.5},"n":null}` {
		t.Errorf("MarshalJSON = %s", out)
	}
}

func TestWithoutDeep(t *testing.T) {
	r := Of("position", 1, "nested", Of("position", 2, "k", "v"), "list", []any{Of("position", 3)})
	got := r.WithoutDeep(PositionKey)
	if got.Has("position") {
		t.Error("top-level position kept")
	}
	n, _ := got.Get("nested")
	if n.(*Record).Has("position") {
		t.Error("nested position kept")
	}
	l, _ := got.Get("list")
	if l.([]any)[0].(*Record).Has("position") {
		t.Error("position inside list kept")
	}
	if !r.Has("position") {
		t.Error("source mutated")
	}
}

func mustJSON(t *testing.T, r *Record) string {
	t.Helper()
	b, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	return string(b)
}
