package transform

import (
	"html"
	"strings"

	"github.com/starford/chatnotes/internal/models"
)

// ApplyCitations replaces citation markers found in metadata
// content_references with parenthesized anchor lists. References without
// usable links remove their marker. All references apply in one pass; when two
// markers overlap the earlier reference wins.
func ApplyCitations(s string, metadata map[string]any) string {
	refs := models.AsSlice(metadata["content_references"])
	if len(refs) == 0 {
		return s
	}
	var pairs []string
	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		ref := models.AsMap(r)
		matched := models.AsString(ref["matched_text"])
		if strings.TrimSpace(matched) == "" {
			continue
		}
		if _, dup := seen[matched]; dup {
			continue
		}
		seen[matched] = struct{}{}
		pairs = append(pairs, matched, citationLinks(ref))
	}
	if len(pairs) == 0 {
		return s
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func citationLinks(ref map[string]any) string {
	var links []string
	for _, it := range models.AsSlice(ref["items"]) {
		item := models.AsMap(it)
		if link, ok := anchor(item); ok {
			links = append(links, link)
		}
		for _, sw := range models.AsSlice(item["supporting_websites"]) {
			if link, ok := anchor(models.AsMap(sw)); ok {
				links = append(links, link)
			}
		}
	}
	if len(links) == 0 {
		return ""
	}
	return "(" + strings.Join(links, ", ") + ")"
}

func anchor(item map[string]any) (string, bool) {
	url := models.AsString(item["url"])
	attribution := models.AsString(item["attribution"])
	if url == "" || attribution == "" {
		return "", false
	}
	return `<a href="` + html.EscapeString(url) + `">` + html.EscapeString(attribution) + `</a>`, true
}
