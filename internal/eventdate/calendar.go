package eventdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

type civil struct {
	year  int
	month time.Month
	day   int
}

func (d civil) time(loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

var (
	yearOnlyRe    = regexp.MustCompile(`^(\d{1,6})$`)
	yearMonthRe   = regexp.MustCompile(`^(\d{1,6})-(\d{1,2})$`)
	numericDMYRe  = regexp.MustCompile(`^(\d{1,2})[ ./-](\d{1,2})[ ./-](\d{1,6})$`)
	dayNameYearRe = regexp.MustCompile(`^(\d{1,2})\.?\s+([\p{L}.]+),?\s+(\d{1,6})$`)
	nameDayYearRe = regexp.MustCompile(`^([\p{L}.]+)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{1,6})$`)
	nameYearRe    = regexp.MustCompile(`^([\p{L}.]+),?\s+(\d{1,6})$`)
	ordinalDayRe  = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)\s+`)
)

// parseCalendar reads the era-free calendar forms: a bare year, year-month,
// day month year (numeric), day month-name year, month-name day year and
// month-name year. Year 0 and impossible days are rejected.
func parseCalendar(s, locale string) (civil, bool) {
	s = strings.TrimSpace(s)
	s = ordinalDayRe.ReplaceAllString(s, "$1 ")
	var d civil
	switch {
	case yearOnlyRe.MatchString(s):
		d = civil{year: atoi(s), month: time.January, day: 1}
	case yearMonthRe.MatchString(s):
		m := yearMonthRe.FindStringSubmatch(s)
		d = civil{year: atoi(m[1]), month: time.Month(atoi(m[2])), day: 1}
	case numericDMYRe.MatchString(s):
		m := numericDMYRe.FindStringSubmatch(s)
		d = civil{year: atoi(m[3]), month: time.Month(atoi(m[2])), day: atoi(m[1])}
	case dayNameYearRe.MatchString(s):
		m := dayNameYearRe.FindStringSubmatch(s)
		month, ok := lookupMonth(m[2], locale)
		if !ok {
			return civil{}, false
		}
		d = civil{year: atoi(m[3]), month: month, day: atoi(m[1])}
	case nameDayYearRe.MatchString(s):
		m := nameDayYearRe.FindStringSubmatch(s)
		month, ok := lookupMonth(m[1], locale)
		if !ok {
			return civil{}, false
		}
		d = civil{year: atoi(m[3]), month: month, day: atoi(m[2])}
	case nameYearRe.MatchString(s):
		m := nameYearRe.FindStringSubmatch(s)
		month, ok := lookupMonth(m[1], locale)
		if !ok {
			return civil{}, false
		}
		d = civil{year: atoi(m[2]), month: month, day: 1}
	default:
		return civil{}, false
	}
	if !d.valid() {
		return civil{}, false
	}
	return d, true
}

func (d civil) valid() bool {
	if d.year <= 0 || d.month < time.January || d.month > time.December || d.day < 1 {
		return false
	}
	t := time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
	return t.Day() == d.day && t.Month() == d.month
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// lookupMonth matches full and abbreviated month names in English and, when a
// locale is given, in that locale (nominative and genitive forms).
func lookupMonth(name, locale string) (time.Month, bool) {
	key := strings.ToLower(strings.TrimSuffix(name, "."))
	if key == "" {
		return 0, false
	}
	locales := []monday.Locale{monday.LocaleEnUS}
	if l := mondayLocale(locale); l != monday.LocaleEnUS {
		locales = append(locales, l)
	}
	for _, l := range locales {
		for m := time.January; m <= time.December; m++ {
			for _, form := range monthForms(m, l) {
				if key == form {
					return m, true
				}
			}
		}
	}
	// "Sept" and similar four-letter abbreviations.
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if len(key) >= 3 && strings.HasPrefix(full, key) {
			return m, true
		}
	}
	return 0, false
}

func monthForms(m time.Month, l monday.Locale) []string {
	t := time.Date(2000, m, 1, 0, 0, 0, 0, time.UTC)
	forms := []string{
		monday.Format(t, "January", l),
		monday.Format(t, "Jan", l),
		strings.TrimPrefix(monday.Format(t, "2 January", l), "1 "),
		strings.TrimPrefix(monday.Format(t, "2 Jan", l), "1 "),
	}
	for i, f := range forms {
		forms[i] = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(f), "."))
	}
	return forms
}
