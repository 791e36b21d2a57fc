package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/chatnotes/internal/models"
)

func TestRegistryScopedHandler(t *testing.T) {
	var r Registry
	r.Register(HandlerFunc(func(c models.Content, _ map[string]any, _ Context) string {
		return "<div>" + c.String("x") + "</div>"
	}), false, "fake", "fake_alias")

	out, ok := r.Render(models.Content{"content_type": "fake_alias", "x": "y"}, nil, Context{})
	assert.True(t, ok)
	assert.Equal(t, "<div>y</div>", out)

	_, ok = r.Render(models.Content{"content_type": "missing"}, nil, Context{})
	assert.False(t, ok)
	assert.Equal(t, []string{"fake", "fake_alias"}, r.Types())
}

func TestRegistryInternalNeedsOptIn(t *testing.T) {
	var r Registry
	r.Register(HandlerFunc(func(models.Content, map[string]any, Context) string { return "secret" }), true, "debug")

	out, ok := r.Render(models.Content{"content_type": "debug"}, nil, Context{})
	assert.True(t, ok)
	assert.Empty(t, out)

	out, _ = r.Render(models.Content{"content_type": "debug"}, nil, Context{RenderInternals: true})
	assert.Equal(t, "secret", out)
	assert.True(t, r.IsInternal("debug"))

	assert.True(t, r.Skips(models.Content{"content_type": "debug"}, Context{}))
	assert.False(t, r.Skips(models.Content{"content_type": "debug"}, Context{RenderInternals: true}))
	assert.False(t, r.Skips(models.Content{"content_type": "missing"}, Context{}))
}

func TestPartRegistry(t *testing.T) {
	parts := NewPartRegistry()
	out, ok := parts.Render(map[string]any{"content_type": "audio_transcription", "text": "hi <there>"}, Context{})
	assert.True(t, ok)
	assert.Equal(t, `<div><i>"hi &lt;there&gt;"</i></div>`, out)

	out, ok = parts.Render(map[string]any{"content_type": "audio_asset_pointer"}, Context{})
	assert.True(t, ok)
	assert.Empty(t, out)

	out, _ = parts.Render(map[string]any{"content_type": "audio_asset_pointer"}, Context{RenderInternals: true})
	assert.Equal(t, "<div><i>[Audio attachment]</i></div>", out)

	_, ok = parts.Render(map[string]any{"content_type": "hologram"}, Context{})
	assert.False(t, ok)
	_, ok = parts.Render(map[string]any{"text": "no type"}, Context{})
	assert.False(t, ok)
}
