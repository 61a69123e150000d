// Package render turns section bodies into sanitized HTML.
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/starford/saga/internal/sections"
)

var (
	markdownRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	htmlSanitizer = bluemonday.UGCPolicy()

	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
)

// Section is one rendered section.
type Section struct {
	Heading string `json:"heading"`
	HTML    string `json:"html"`
}

// Markdown renders src as GitHub-flavoured Markdown and sanitizes the result.
// Wiki links become relative links to the target name.
func Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(expandWikilinks(src)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return string(htmlSanitizer.SanitizeBytes(buf.Bytes())), nil
}

// Sections renders every section body in order.
func Sections(m sections.Map) ([]Section, error) {
	out := make([]Section, 0, m.Len())
	for _, s := range m.Entries() {
		html, err := Markdown(s.Body)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", s.Heading, err)
		}
		out = append(out, Section{Heading: s.Heading, HTML: html})
	}
	return out, nil
}

func expandWikilinks(src string) string {
	return wikilinkRe.ReplaceAllStringFunc(src, func(m string) string {
		inner := wikilinkRe.FindStringSubmatch(m)[1]
		target, alias, ok := strings.Cut(inner, "|")
		target = strings.TrimSpace(target)
		if !ok {
			alias = target
		}
		if target == "" {
			return m
		}
		return "[" + strings.TrimSpace(alias) + "](" + url.PathEscape(target) + ")"
	})
}
