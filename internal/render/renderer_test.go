package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/chatnotes/internal/marker"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/testutil"
)

func newRenderer(opts ...Option) *Renderer {
	return NewRenderer(defaultRegistry(), opts...)
}

func TestFullScenario(t *testing.T) {
	conv := testutil.Conversation("Greeting",
		testutil.TextMessage("m1", "user", "Hello", 1),
		testutil.TextMessage("m2", "assistant", "**world**", 2),
	)
	doc := newRenderer().Full(conv)

	body := doc.Body
	require.True(t, strings.HasPrefix(body, "<div><h1>Greeting</h1></div><div><br></div>"))
	you := strings.Index(body, "<h2>You</h2>")
	hello := strings.Index(body, "Hello")
	gpt := strings.Index(body, "<h2>ChatGPT</h2>")
	world := strings.Index(body, "<b>world</b>")
	assert.True(t, you >= 0 && you < hello && hello < gpt && gpt < world, body)
	assert.True(t, strings.HasSuffix(body, marker.Format(testutil.ConversationID, "m2")))
	assert.Equal(t, "m2", doc.LastMessageID)
	assert.Equal(t, 2, doc.Messages)
}

func TestFooterCursorRoundTrip(t *testing.T) {
	conv := testutil.Conversation("t",
		testutil.TextMessage("a", "user", "one", 1),
		testutil.TextMessage("b", "assistant", "two", 2),
		testutil.TextMessage("c", "user", "three", 3),
	)
	r := newRenderer()
	m, ok := marker.Extract(r.Full(conv).Body)
	require.True(t, ok)
	assert.Equal(t, "c", m.LastMessageID)

	again := r.Append(conv, m.LastMessageID)
	assert.True(t, again.Empty())
	assert.Zero(t, again.Messages)
}

func TestAppendAfterCursor(t *testing.T) {
	conv := testutil.Conversation("t",
		testutil.TextMessage("k1", "user", "first-msg", 1),
		testutil.TextMessage("k2", "assistant", "second-msg", 2),
		testutil.TextMessage("k3", "user", "third-msg", 3),
		testutil.TextMessage("k4", "assistant", "fourth-msg", 4),
	)
	doc := newRenderer().Append(conv, "k2")
	assert.NotContains(t, doc.Body, "first-msg")
	assert.NotContains(t, doc.Body, "second-msg")
	assert.Contains(t, doc.Body, "third-msg")
	assert.Contains(t, doc.Body, "fourth-msg")
	assert.NotContains(t, doc.Body, "<h1>")
	m, ok := marker.Extract(doc.Body)
	require.True(t, ok)
	assert.Equal(t, "k4", m.LastMessageID)
}

func TestAppendUnknownCursorStartsOver(t *testing.T) {
	conv := testutil.Conversation("t", testutil.TextMessage("x", "user", "only", 1))
	doc := newRenderer().Append(conv, "gone")
	assert.Contains(t, doc.Body, "only")
	assert.Equal(t, 1, doc.Messages)
}

func TestRecipientFilter(t *testing.T) {
	routed := testutil.TextMessage("r", "assistant", "to-python", 2)
	routed.Metadata["recipient"] = "python"
	broadcast := testutil.TextMessage("b", "assistant", "to-all", 3)
	broadcast.Metadata["recipient"] = "all"
	conv := testutil.Conversation("t", testutil.TextMessage("u", "user", "hi", 1), routed, broadcast)

	r := newRenderer(WithRenderInternals(true))
	full := r.Full(conv)
	assert.NotContains(t, full.Body, "to-python")
	assert.Contains(t, full.Body, "to-all")

	app := r.Append(conv, "u")
	assert.NotContains(t, app.Body, "to-python")
	assert.Contains(t, app.Body, "to-all")
}

func TestFooterUsesLastRenderedMessage(t *testing.T) {
	tool := testutil.TextMessage("t1", "tool", "noise", 3)
	conv := testutil.Conversation("t",
		testutil.TextMessage("u", "user", "q", 1),
		testutil.TextMessage("a", "assistant", "ans", 2),
		tool,
	)
	doc := newRenderer().Full(conv)
	assert.NotContains(t, doc.Body, "noise")
	assert.Equal(t, "a", doc.LastMessageID)
}

func TestFooterFallsBackWhenNothingRendered(t *testing.T) {
	conv := testutil.Conversation("t", testutil.TextMessage("t1", "tool", "noise", 1))
	doc := newRenderer().Full(conv)
	assert.Equal(t, "t1", doc.LastMessageID)
	assert.Zero(t, doc.Messages)

	empty := newRenderer().Full(testutil.Conversation("none"))
	assert.Empty(t, empty.LastMessageID)
	assert.True(t, strings.HasSuffix(empty.Body, marker.Format(testutil.ConversationID, "")))
	m, ok := marker.Identify(empty.Body)
	require.True(t, ok)
	assert.Equal(t, marker.Marker{ConversationID: testutil.ConversationID}, m)
}

func TestSkippedInternalMessageLeavesNoHeading(t *testing.T) {
	thoughts := testutil.Message("th", "assistant", models.Content{
		"content_type": "thoughts",
		"thoughts":     []any{map[string]any{"summary": "pondering", "content": "deep"}},
	}, 2)
	conv := testutil.Conversation("t",
		testutil.TextMessage("u", "user", "hi", 1),
		thoughts,
	)

	doc := newRenderer().Full(conv)
	assert.NotContains(t, doc.Body, "<h2>ChatGPT</h2>")
	assert.Equal(t, 1, doc.Messages)
	assert.Equal(t, "u", doc.LastMessageID)

	assert.True(t, newRenderer().Append(conv, "u").Empty())

	shown := newRenderer(WithRenderInternals(true)).Full(conv)
	assert.Contains(t, shown.Body, "<h2>ChatGPT</h2>")
	assert.Equal(t, 2, shown.Messages)
	assert.Equal(t, "th", shown.LastMessageID)
}

func TestToolVisibility(t *testing.T) {
	img := testutil.Message("img", "tool", models.Content{"content_type": "execution_output", "text": "x"}, 2)
	img.Metadata["aggregate_result"] = map[string]any{"messages": []any{
		map[string]any{"message_type": "image", "image_url": "https://img/p.png"},
	}}
	img.Author.Name = "python"
	mm := testutil.Message("mm", "tool", models.Content{"content_type": "multimodal_text", "parts": []any{"dalle"}}, 3)
	conv := testutil.Conversation("t", testutil.TextMessage("u", "user", "draw", 1), img, mm)

	body := newRenderer().Full(conv).Body
	assert.Contains(t, body, "<h2>Plugin (python)</h2>")
	assert.Contains(t, body, "https://img/p.png")
	assert.Contains(t, body, "<h2>Plugin</h2>")
}

func TestHiddenMemoryMessage(t *testing.T) {
	mem := testutil.Message("mem", "assistant", models.Content{"content_type": "model_editable_context", "model_set_context": "secret"}, 1)
	conv := testutil.Conversation("t", mem, testutil.TextMessage("u", "user", "hi", 2))
	body := newRenderer(WithRenderInternals(true)).Full(conv).Body
	assert.NotContains(t, body, "secret")
	assert.Equal(t, 1, strings.Count(body, "<h2>"))
}

func TestUnknownContentType(t *testing.T) {
	conv := testutil.Conversation("t",
		testutil.Message("z", "assistant", models.Content{"content_type": "hologram"}, 1))
	assert.NotPanics(t, func() {
		body := newRenderer().Full(conv).Body
		assert.Contains(t, body, Fallback)
	})
}

func TestCustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.ToolVisible = func(models.Message) bool { return true }
	conv := testutil.Conversation("t", testutil.TextMessage("t1", "tool", "shown", 1))
	assert.Contains(t, newRenderer(WithPolicy(p)).Full(conv).Body, "shown")
}

func TestAuthorLabel(t *testing.T) {
	assert.Equal(t, "ChatGPT", AuthorLabel(models.Author{Role: "assistant"}))
	assert.Equal(t, "You", AuthorLabel(models.Author{Role: "user"}))
	assert.Equal(t, "Plugin (web)", AuthorLabel(models.Author{Role: "tool", Name: "web"}))
	assert.Equal(t, "Plugin", AuthorLabel(models.Author{Role: "tool"}))
	assert.Equal(t, "System", AuthorLabel(models.Author{Role: "system"}))
	assert.Equal(t, "Critic", AuthorLabel(models.Author{Role: "CRITIC"}))
}

const onePixelPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

func TestFullCollectsDataURLAttachments(t *testing.T) {
	mm := testutil.Message("p", "user", models.Content{"content_type": "multimodal_text", "parts": []any{
		map[string]any{"content_type": "image_asset_pointer", "asset_pointer": onePixelPNG},
		"caption",
	}}, 1)
	doc := newRenderer().Full(testutil.Conversation("img", mm))
	require.Len(t, doc.Attachments, 1)
	assert.Equal(t, "image/png", doc.Attachments[0].MIMEType)
	assert.Equal(t, "image-1.png", doc.Attachments[0].Name)
	assert.Contains(t, doc.Body, `<img src="data:image/png;base64,`)
}

func TestDataURLToPNGRejectsGarbage(t *testing.T) {
	_, err := DataURLToPNG("data:image/png,notbase64")
	assert.Error(t, err)
	_, err = DataURLToPNG("data:image/png;base64,AAAA")
	assert.Error(t, err)
}
