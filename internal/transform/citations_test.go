package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const citeMarker = "\ue200cite\ue202turn0search3\ue201"

func TestApplyCitationsSingleSource(t *testing.T) {
	meta := map[string]any{
		"content_references": []any{
			map[string]any{
				"matched_text": citeMarker,
				"items": []any{
					map[string]any{"url": "https://example.com", "attribution": "Example"},
				},
			},
		},
	}
	got := ApplyCitations("<div>fact "+citeMarker+"</div>", meta)
	assert.Equal(t, `<div>fact (<a href="https://example.com">Example</a>)</div>`, got)
	assert.Equal(t, 1, strings.Count(got, "<a "))
	assert.NotContains(t, got, "\ue200")
}

func TestApplyCitationsSupportingWebsites(t *testing.T) {
	meta := map[string]any{
		"content_references": []any{
			map[string]any{
				"matched_text": citeMarker,
				"items": []any{
					map[string]any{
						"url":         "https://a.example",
						"attribution": "A",
						"supporting_websites": []any{
							map[string]any{"url": "https://b.example", "attribution": "B"},
						},
					},
				},
			},
		},
	}
	got := ApplyCitations(citeMarker, meta)
	assert.Equal(t, `(<a href="https://a.example">A</a>, <a href="https://b.example">B</a>)`, got)
}

func TestApplyCitationsRemovesUnresolvable(t *testing.T) {
	meta := map[string]any{
		"content_references": []any{
			map[string]any{"matched_text": citeMarker},
			map[string]any{
				"matched_text": "x",
				"items":        []any{map[string]any{"url": "https://no-attribution.example"}},
			},
		},
	}
	assert.Equal(t, "ab", ApplyCitations("a"+citeMarker+"bx", meta))
}

func TestApplyCitationsSkipsWhitespaceMarkers(t *testing.T) {
	meta := map[string]any{
		"content_references": []any{
			map[string]any{"matched_text": " ", "items": []any{}},
		},
	}
	assert.Equal(t, "a b", ApplyCitations("a b", meta))
}

func TestApplyCitationsWithoutMetadata(t *testing.T) {
	assert.Equal(t, "x", ApplyCitations("x", nil))
}
