// Package sections splits a Markdown body into named sections by "##" headings
// and renders them back.
package sections

import (
	"regexp"
	"strings"
)

// Strategy reports which parser produced a Map.
type Strategy string

const (
	StrategyNone    Strategy = "none"
	StrategyPattern Strategy = "pattern"
	StrategyLines   Strategy = "lines"
)

// headingRe matches "## Heading" and "##Heading" at column zero. "###" and
// deeper stay part of the body.
var headingRe = regexp.MustCompile(`(?m)^##[ \t]*([^#\s].*?)[ \t]*\r?$`)

// Parse splits body into sections. It tries the heading pattern first and
// falls back to the line scanner when the pattern finds nothing although the
// body contains "##".
func Parse(body string) Map {
	m, _ := ParseReport(body)
	return m
}

// ParseReport is Parse plus the strategy that produced the result.
func ParseReport(body string) (Map, Strategy) {
	if m := ParsePattern(body); m.Len() > 0 {
		return m, StrategyPattern
	}
	if !strings.Contains(body, "##") {
		return Map{}, StrategyNone
	}
	return ParseLines(body), StrategyLines
}

// ParsePattern matches heading lines at column zero. Each
// section body runs up to the next heading line or the end of input.
func ParsePattern(body string) Map {
	var m Map
	locs := headingRe.FindAllStringSubmatchIndex(body, -1)
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		m.put(strings.TrimSpace(body[loc[2]:loc[3]]), strings.TrimSpace(body[loc[1]:end]))
	}
	return m
}

// ParseLines walks the body line by line. Any line whose trimmed form starts
// with "##" (but not "###") opens a section, so indented headings are accepted. Text before the first heading
// is ignored.
func ParseLines(body string) Map {
	var (
		m       Map
		heading string
		open    bool
		buf     []string
	)
	flush := func() {
		if open {
			m.put(heading, strings.TrimSpace(strings.Join(buf, "\n")))
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		if isLineHeading(line) {
			flush()
			heading = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "##"))
			open = true
			buf = buf[:0]
			continue
		}
		if open {
			buf = append(buf, line)
		}
	}
	flush()
	return m
}

func isLineHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "##") && !strings.HasPrefix(trimmed, "###")
}

// Preamble returns the trimmed text that precedes the first heading. A body
// without headings is all preamble.
func Preamble(body string) string {
	if loc := headingRe.FindStringIndex(body); loc != nil {
		return strings.TrimSpace(body[:loc[0]])
	}
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if isLineHeading(line) {
			return strings.TrimSpace(strings.Join(lines[:i], "\n"))
		}
	}
	return strings.TrimSpace(body)
}

// Render writes m back as "## Heading" blocks separated by blank lines.
// Sections with an empty body still emit their heading.
func Render(m Map) string {
	var b strings.Builder
	for i, s := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## ")
		b.WriteString(s.Heading)
		b.WriteString("\n")
		if s.Body != "" {
			b.WriteString(s.Body)
			b.WriteString("\n")
		}
	}
	return b.String()
}
