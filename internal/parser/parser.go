// Package parser extracts the title, sections, links, sync cursor and plain
// text from a rendered note body.
package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/starford/chatnotes/internal/marker"
)

var (
	titleRe   = regexp.MustCompile(`(?s)<h1>(.*?)</h1>`)
	sectionRe = regexp.MustCompile(`(?s)<h2>(.*?)</h2>`)
	linkRe    = regexp.MustCompile(`<a href="([^"]*)"`)
	breakRe   = regexp.MustCompile(`(?i)<br\s*/?>|</(?:div|h[1-6]|blockquote|pre|tr)>`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	blankRe   = regexp.MustCompile(`\n\s*\n+`)
)

// Result holds the output of parsing a note body.
type Result struct {
	Title     string
	Sections  []string
	Links     []string
	Text      string
	Cursor    marker.Marker
	HasCursor bool
}

// Parse extracts structure from a note body. The footer is excluded from
// the plain text.
func Parse(body string) *Result {
	r := &Result{
		Title:    deriveTitle(body),
		Sections: extractSections(body),
		Links:    extractLinks(body),
		Text:     plainText(marker.Strip(body)),
	}
	r.Cursor, r.HasCursor = marker.Extract(body)
	return r
}

// deriveTitle returns the text of the first h1, otherwise empty string.
func deriveTitle(body string) string {
	m := titleRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[1], "")))
}

// extractSections returns the author headings in order.
func extractSections(body string) []string {
	var out []string
	for _, m := range sectionRe.FindAllStringSubmatch(body, -1) {
		out = append(out, html.UnescapeString(strings.TrimSpace(m[1])))
	}
	return out
}

// extractLinks returns deduplicated anchor targets.
func extractLinks(body string) []string {
	matches := linkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := strings.TrimSpace(html.UnescapeString(m[1]))
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

func plainText(body string) string {
	s := breakRe.ReplaceAllString(body, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
