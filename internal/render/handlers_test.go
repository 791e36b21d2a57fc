package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/chatnotes/internal/markdown"
	"github.com/starford/chatnotes/internal/models"
)

func defaultRegistry() *Registry {
	return NewRegistry(markdown.New(), NewPartRegistry())
}

func render(t *testing.T, c models.Content, meta map[string]any, rc Context) string {
	t.Helper()
	out, ok := defaultRegistry().Render(c, meta, rc)
	assert.True(t, ok, "content type %q not registered", c.Type())
	return out
}

func TestTextHandler(t *testing.T) {
	out := render(t, models.Content{"content_type": "text", "parts": []any{"**bold**", "", "line【3†(src)】"}}, nil, Context{})
	assert.Contains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "line")
	assert.NotContains(t, out, "†")
}

func TestTextHandlerAppliesCitations(t *testing.T) {
	marker := "\ue200cite\ue202turn0search0\ue201"
	meta := map[string]any{"content_references": []any{map[string]any{
		"matched_text": marker,
		"items":        []any{map[string]any{"url": "https://go.dev", "attribution": "Go"}},
	}}}
	out := render(t, models.Content{"content_type": "text", "parts": []any{"Go is fast " + marker}}, meta, Context{})
	assert.Contains(t, out, `(<a href="https://go.dev">Go</a>)`)
	assert.NotContains(t, out, "\ue200")
}

func TestMultimodalHandler(t *testing.T) {
	c := models.Content{"content_type": "multimodal_text", "parts": []any{
		"intro",
		map[string]any{"content_type": "audio_transcription", "text": "spoken"},
		map[string]any{"content_type": "unknown_part"},
		map[string]any{"content_type": "image_asset_pointer", "asset_pointer": "file-service://abc"},
	}}
	out := render(t, c, nil, Context{})
	assert.Contains(t, out, "<div>intro</div>")
	assert.Contains(t, out, `<div><i>"spoken"</i></div>`)
	assert.Contains(t, out, "[Image]")
}

func TestCodeHandler(t *testing.T) {
	out := render(t, models.Content{"content_type": "code", "text": "x := a < b"}, nil, Context{})
	assert.Equal(t, "<pre>x := a &lt; b</pre>", out)
}

func TestExecutionOutputHandler(t *testing.T) {
	c := models.Content{"content_type": "execution_output", "text": "plain"}
	assert.Equal(t, "<pre>plain</pre>", render(t, c, nil, Context{}))

	meta := map[string]any{"aggregate_result": map[string]any{"messages": []any{
		map[string]any{"message_type": "stream", "text": "ignored"},
		map[string]any{"message_type": "image", "image_url": "https://img/1.png"},
		map[string]any{"message_type": "image", "image_url": "https://img/2.png"},
	}}}
	out := render(t, c, meta, Context{})
	assert.Equal(t,
		`<div><img src="https://img/1.png" style="max-width: 100%;"></div>`+"\n"+
			`<div><img src="https://img/2.png" style="max-width: 100%;"></div>`, out)
}

func TestTetherHandlers(t *testing.T) {
	assert.Equal(t, "<blockquote>Title</blockquote>",
		render(t, models.Content{"content_type": "tether_quote", "title": "Title", "text": "body"}, nil, Context{}))
	assert.Equal(t, "<blockquote>body</blockquote>",
		render(t, models.Content{"content_type": "tether_quote", "text": "body"}, nil, Context{}))

	browse := models.Content{"content_type": "tether_browsing_display"}
	assert.Empty(t, render(t, browse, nil, Context{}))
	meta := map[string]any{"_cite_metadata": map[string]any{"metadata_list": []any{
		map[string]any{"title": "Go", "url": "https://go.dev"},
		map[string]any{"url": "https://pkg.go.dev"},
	}}}
	assert.Equal(t,
		`<blockquote><a href="https://go.dev">Go</a></blockquote>`+"\n"+
			`<blockquote><a href="https://pkg.go.dev">https://pkg.go.dev</a></blockquote>`,
		render(t, browse, meta, Context{}))
}

func TestSonicWebpageAndSystemError(t *testing.T) {
	assert.Equal(t, `<div><a href="https://x.dev">https://x.dev</a></div>`,
		render(t, models.Content{"content_type": "sonic_webpage", "url": "https://x.dev"}, nil, Context{}))
	assert.Equal(t, "<div>⚠ <b>Error</b>: boom</div>",
		render(t, models.Content{"content_type": "system_error", "text": "boom"}, nil, Context{}))
	assert.Equal(t, "<div>⚠ <b>Timeout</b>: slow</div>",
		render(t, models.Content{"content_type": "system_error", "name": "Timeout", "text": "slow"}, nil, Context{}))
}

func TestAppPairingHandler(t *testing.T) {
	long := strings.Repeat("a", 250)
	c := models.Content{
		"content_type": "app_pairing_content",
		"workspaces": []any{
			map[string]any{"app_name": "Xcode", "title": "main.swift"},
			map[string]any{"app_name": "Terminal"},
		},
		"context_parts": []any{map[string]any{"text": long}},
	}
	out := render(t, c, nil, Context{})
	assert.Contains(t, out, "<div><b>Xcode</b>: main.swift</div>")
	assert.Contains(t, out, "<div><b>Terminal</b></div>")
	assert.Contains(t, out, "<div><i>"+strings.Repeat("a", 200)+"...</i></div>")
}

func TestInternalHandlers(t *testing.T) {
	on := Context{RenderInternals: true}
	thoughts := models.Content{"content_type": "thoughts", "thoughts": []any{
		map[string]any{"summary": "Plan", "content": "step one"},
	}}
	assert.Empty(t, render(t, thoughts, nil, Context{}))
	assert.Equal(t, "<div><i><b>Plan</b></i></div>\n<div><i>step one</i></div>", render(t, thoughts, nil, on))

	assert.Equal(t, "<div><i>thought for 3s</i></div>",
		render(t, models.Content{"content_type": "reasoning_recap", "content": "thought for 3s"}, nil, on))

	uec := models.Content{"content_type": "user_editable_context", "user_profile": "dev", "user_instructions": "be brief"}
	assert.Equal(t, "<div><i>[User Profile] dev</i></div>\n<div><i>[User Instructions] be brief</i></div>", render(t, uec, nil, on))

	assert.Equal(t, "<div><i>[ChatGPT Memory] likes Go</i></div>",
		render(t, models.Content{"content_type": "model_editable_context", "model_set_context": "likes Go"}, nil, on))
}
