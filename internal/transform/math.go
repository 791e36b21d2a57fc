package transform

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var mathPattern = regexp.MustCompile(`(\$\$[\s\S]+?\$\$)|(\$[^\$\n]+?\$)|(\\\[[\s\S]+?\\\])|(\\\([\s\S]+?\\\))`)

// Sentinel candidates, all in the Unicode private use area.
const (
	sentinelFirst rune = '\uF8F0'
	sentinelLast  rune = '\uF8FF'
)

// MathTable remembers the math spans replaced by ProtectMath.
type MathTable struct {
	sentinel rune
	spans    []string
}

// Len returns the number of protected spans.
func (t *MathTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.spans)
}

// ProtectMath replaces every math span in s with a numbered placeholder
// framed by a sentinel rune that does not occur in s.
func ProtectMath(s string) (string, *MathTable) {
	t := &MathTable{sentinel: pickSentinel(s)}
	if t.sentinel == 0 {
		return s, t
	}
	out := mathPattern.ReplaceAllStringFunc(s, func(m string) string {
		idx := len(t.spans)
		t.spans = append(t.spans, m)
		return t.placeholder(idx)
	})
	return out, t
}

func (t *MathTable) placeholder(i int) string {
	var b strings.Builder
	b.WriteRune(t.sentinel)
	b.WriteString(strconv.Itoa(i))
	b.WriteRune(t.sentinel)
	return b.String()
}

// Restore substitutes each placeholder with its HTML-escaped original in one
// left-to-right scan. Unknown or malformed placeholders are left as they are.
func (t *MathTable) Restore(s string) string {
	if t.Len() == 0 {
		return s
	}
	sep := string(t.sentinel)
	var b strings.Builder
	b.Grow(len(s))
	for {
		start := strings.Index(s, sep)
		if start < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:start])
		rest := s[start+len(sep):]
		end := strings.Index(rest, sep)
		if end < 0 {
			b.WriteString(s[start:])
			break
		}
		idx, err := strconv.Atoi(rest[:end])
		if err != nil || idx < 0 || idx >= len(t.spans) {
			// keep the opening sentinel; the closing one may open a real placeholder
			b.WriteString(sep)
			s = rest
			continue
		}
		b.WriteString(html.EscapeString(t.spans[idx]))
		s = rest[end+len(sep):]
	}
	return b.String()
}

func pickSentinel(s string) rune {
	for r := sentinelFirst; r <= sentinelLast; r++ {
		if !strings.ContainsRune(s, r) {
			return r
		}
	}
	return 0
}
