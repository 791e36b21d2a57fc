package transform

import (
	"regexp"
	"strings"
)

var (
	footnotePattern = regexp.MustCompile(`[\x{3010}\x{3011}\x{ff3b}\x{ff3d}]\d+\x{2020}\([^)]+\)[\x{3010}\x{3011}\x{ff3b}\x{ff3d}]`)

	leadingSpacerPattern = regexp.MustCompile(`(?i)(<(?:li|blockquote)[^>]*>)\s*<div>(?:<br\s*/?>|\s)*</div>\s*`)
	adjacentBlockPattern = regexp.MustCompile(`(?i)(</(?:div|ul|ol|blockquote|pre|table|h[1-6])>)(\s*)(<(?:div|ul|ol|blockquote|pre|table|h[1-6])(?:\s|>))`)
)

// Spacer is the empty paragraph the target app shows as a blank line.
const Spacer = "<div><br></div>"

const spacerMark = "\x00SPACER\x00"

// StripFootnotes removes browsing footnote glyphs such as 【12†(source)】.
func StripFootnotes(s string) string {
	return footnotePattern.ReplaceAllString(s, "")
}

// AddBlockSpacing inserts a Spacer between every adjacent pair of block
// elements and drops empty containers opened right inside an item or quote.
func AddBlockSpacing(s string) string {
	s = leadingSpacerPattern.ReplaceAllString(s, "${1}\n")
	// Each round only touches boundaries the previous round created, so the
	// loop ends after at most one round per block element.
	for {
		next := adjacentBlockPattern.ReplaceAllString(s, "${1}\n"+spacerMark+"\n${3}")
		if next == s {
			break
		}
		s = next
	}
	return strings.ReplaceAll(s, spacerMark, Spacer)
}
