// Package eventdate turns free-form story dates ("500 BCE", "circa March 1066",
// "2024-05-01T10:00") into sortable instants.
//
// Parsing never reads the process clock: relative expressions resolve against
// Options.Reference and are disabled when it is zero.
package eventdate

import (
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Precision is the finest calendar unit a parsed date carries.
type Precision string

const (
	PrecisionYear  Precision = "year"
	PrecisionMonth Precision = "month"
	PrecisionDay   Precision = "day"
	PrecisionTime  Precision = "time"
)

// ErrorCode explains why no date was produced.
type ErrorCode string

const (
	ErrorEmpty    ErrorCode = "empty"
	ErrorUnparsed ErrorCode = "unparsed"
)

// Options tunes Parse. The zero value parses in UTC with English month names
// and no relative expressions.
type Options struct {
	// ForwardDate resolves a bare weekday to its next occurrence instead of
	// its day in the reference week.
	ForwardDate bool
	Location    *time.Location
	// Locale is a BCP 47 tag such as "fr" or "en-GB".
	Locale    string
	Reference time.Time
}

// Result is the outcome of Parse. Exactly one of Start and Error is set.
type Result struct {
	Start        *time.Time `json:"start,omitempty"`
	Precision    Precision  `json:"precision,omitempty"`
	Approximate  bool       `json:"approximate,omitempty"`
	IsBCE        bool       `json:"isBCE,omitempty"`
	OriginalYear int        `json:"originalYear,omitempty"`
	Error        ErrorCode  `json:"error,omitempty"`
}

// OK reports whether a date was parsed.
func (r Result) OK() bool { return r.Start != nil }

// Millis returns the signed epoch milliseconds of Start.
func (r Result) Millis() (int64, bool) {
	if r.Start == nil {
		return 0, false
	}
	return ToMillis(*r.Start), true
}

// Display renders Start for the given locale, honoring the BCE flags.
func (r Result) Display(locale string) string {
	if r.Start == nil {
		return ""
	}
	return Display(*r.Start, DisplayOptions{
		Locale:       locale,
		IsBCE:        r.IsBCE,
		OriginalYear: r.OriginalYear,
		Precision:    r.Precision,
	})
}

// ToMillis returns t as signed milliseconds since the Unix epoch. Dates before
// 1970, including every BCE date, are negative.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

var (
	approxWordRe = regexp.MustCompile(`(?i)(?:^|\s)(?:circa|ca\.|c\.|around|about|approximately|approx\.?)(?:\s|$)`)
	spaceRe      = regexp.MustCompile(`\s+`)
	eraRe        = regexp.MustCompile(`(?i)(?:^|\s)(b\.?\s?c\.?\s?e\.?|b\.?\s?c\.?|a\.?\s?d\.?|c\.?\s?e\.?)(?:\s|,|$)`)
)

var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"20060102T150405Z0700",
	"20060102T150405",
	"2006-01-02",
	"20060102",
	"2006-01",
	"2006",
}

var sqlLayouts = []string{
	"2006-01-02 15:04:05 Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04 Z07:00",
	"2006-01-02 15:04",
}

// Parse interprets input as a calendar date. ISO 8601 is tried first, then
// SQL-style timestamps, then era-tagged forms (BC, BCE, AD, CE), then loose
// calendar forms, and finally relative expressions.
func Parse(input string, opts Options) Result {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Result{Error: ErrorEmpty}
	}
	s, approx := stripApprox(raw)
	if s == "" {
		return Result{Error: ErrorUnparsed, Approximate: approx}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	res := parseStructured(s, loc, opts.Locale)
	if res.Start == nil && !opts.Reference.IsZero() {
		res = parseRelative(s, loc, opts)
	}
	if res.Start == nil {
		return Result{Error: ErrorUnparsed, Approximate: approx}
	}
	res.Approximate = approx
	res.Precision = inferPrecision(*res.Start)
	return res
}

func stripApprox(s string) (string, bool) {
	approx := false
	if strings.Contains(s, "~") {
		approx = true
		s = strings.ReplaceAll(s, "~", " ")
	}
	for approxWordRe.MatchString(s) {
		approx = true
		s = approxWordRe.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " ")), approx
}

func parseStructured(s string, loc *time.Location, locale string) Result {
	for _, layouts := range [][]string{isoLayouts, sqlLayouts} {
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return Result{Start: &t}
			}
		}
	}
	if res, ok := parseEra(s, loc, locale); ok {
		return res
	}
	if d, ok := parseCalendar(s, locale); ok {
		t := d.time(loc)
		return Result{Start: &t}
	}
	return Result{}
}

// parseEra handles inputs carrying an era marker. BC years use astronomical
// numbering internally: 1 BCE is year 0, 500 BCE is year -499.
func parseEra(s string, loc *time.Location, locale string) (Result, bool) {
	m := eraRe.FindStringSubmatchIndex(s)
	if m == nil {
		return Result{}, false
	}
	token := strings.ToLower(s[m[2]:m[3]])
	bc := strings.HasPrefix(token, "b")
	rest := strings.TrimSpace(s[:m[2]] + " " + s[m[3]:])
	rest = strings.Trim(rest, " ,")
	d, ok := parseCalendar(rest, locale)
	if !ok || d.year <= 0 {
		return Result{}, false
	}
	if !bc {
		t := d.time(loc)
		return Result{Start: &t}, true
	}
	original := d.year
	d.year = 1 - original
	t := d.time(loc)
	return Result{Start: &t, IsBCE: true, OriginalYear: original}, true
}

func parseRelative(s string, loc *time.Location, opts Options) Result {
	ref := opts.Reference.In(loc)
	if wd, ok := bareWeekday(s); ok {
		t := weekdayDate(wd, ref, opts.ForwardDate)
		return Result{Start: &t}
	}
	if m, ok := lookupMonth(s, opts.Locale); ok {
		t := time.Date(ref.Year(), m, 1, 0, 0, 0, 0, loc)
		return Result{Start: &t}
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, ref)
	if err != nil || r == nil {
		return Result{}
	}
	t := r.Time.In(loc)
	// A match that moved nothing only echoes the reference back.
	if t.Equal(ref) && !presentWords[strings.ToLower(s)] {
		return Result{}
	}
	return Result{Start: &t}
}

var presentWords = map[string]bool{"now": true, "right now": true, "today": true}

func bareWeekday(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "on "))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// weekdayDate places wd in the Monday-based week containing ref. With forward
// set, a day already behind ref moves to the following week.
func weekdayDate(wd time.Weekday, ref time.Time, forward bool) time.Time {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	offset := (int(wd)+6)%7 - (int(ref.Weekday())+6)%7
	if forward && offset < 0 {
		offset += 7
	}
	return day.AddDate(0, 0, offset)
}

// inferPrecision guesses precision from which components differ from their
// defaults. An explicit "1 January" therefore reads as year precision.
func inferPrecision(t time.Time) Precision {
	switch {
	case t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0:
		return PrecisionTime
	case t.Day() != 1:
		return PrecisionDay
	case t.Month() != time.January:
		return PrecisionMonth
	default:
		return PrecisionYear
	}
}
