package eventdate

import (
	"strconv"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

// DisplayOptions controls Display.
type DisplayOptions struct {
	Locale       string
	IsBCE        bool
	OriginalYear int
	Precision    Precision
}

// mediumLayouts holds a medium date-time layout per supported locale. Month
// abbreviations are translated by monday.
var mediumLayouts = map[monday.Locale]string{
	monday.LocaleEnUS:      "Jan 2, 2006, 3:04 PM",
	monday.Locale("en_GB"): "2 Jan 2006, 15:04",
	monday.Locale("fr_FR"): "2 Jan 2006, 15:04",
	monday.Locale("fr_CA"): "2 Jan 2006, 15 h 04",
	monday.Locale("de_DE"): "02.01.2006, 15:04",
	monday.Locale("es_ES"): "2 Jan 2006, 15:04",
	monday.Locale("it_IT"): "2 Jan 2006, 15:04",
	monday.Locale("pt_BR"): "2 Jan 2006, 15:04",
	monday.Locale("pt_PT"): "02/01/2006, 15:04",
	monday.Locale("nl_NL"): "2 Jan 2006 15:04",
	monday.Locale("ru_RU"): "2 Jan 2006, 15:04",
	monday.Locale("uk_UA"): "2 Jan 2006, 15:04",
	monday.Locale("pl_PL"): "2 Jan 2006, 15:04",
	monday.Locale("ja_JP"): "2006/01/02 15:04",
	monday.Locale("zh_CN"): "2006年1月2日 15:04",
}

var defaultLocales = map[string]monday.Locale{
	"en": monday.LocaleEnUS,
	"fr": monday.Locale("fr_FR"),
	"de": monday.Locale("de_DE"),
	"es": monday.Locale("es_ES"),
	"it": monday.Locale("it_IT"),
	"pt": monday.Locale("pt_BR"),
	"nl": monday.Locale("nl_NL"),
	"ru": monday.Locale("ru_RU"),
	"uk": monday.Locale("uk_UA"),
	"pl": monday.Locale("pl_PL"),
	"ja": monday.Locale("ja_JP"),
	"zh": monday.Locale("zh_CN"),
}

// mondayLocale maps a BCP 47 tag to a supported monday locale, falling back to
// the language default and then to en_US.
func mondayLocale(tag string) monday.Locale {
	if tag == "" {
		return monday.LocaleEnUS
	}
	t, err := language.Parse(tag)
	if err != nil {
		return monday.LocaleEnUS
	}
	base, _ := t.Base()
	region, _ := t.Region()
	l := monday.Locale(base.String() + "_" + region.String())
	if _, ok := mediumLayouts[l]; ok {
		return l
	}
	if l, ok := defaultLocales[base.String()]; ok {
		return l
	}
	return monday.LocaleEnUS
}

// Display formats t for humans. BCE dates print the written year with a "BCE"
// suffix at the parsed precision; other dates use the locale's medium
// date-time format.
func Display(t time.Time, opts DisplayOptions) string {
	l := mondayLocale(opts.Locale)
	if !opts.IsBCE {
		return monday.Format(t, mediumLayouts[l], l)
	}
	year := opts.OriginalYear
	if year == 0 {
		year = 1 - t.Year()
	}
	suffix := strconv.Itoa(year) + " BCE"
	switch opts.Precision {
	case PrecisionMonth:
		return monday.Format(t, "January", l) + " " + suffix
	case PrecisionDay:
		return monday.Format(t, "January 2", l) + ", " + suffix
	case PrecisionTime:
		return monday.Format(t, "January 2", l) + ", " + suffix + " " + t.Format("15:04")
	default:
		return suffix
	}
}
