package render

import (
	"html"
	"strings"

	"github.com/starford/chatnotes/internal/markdown"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/transform"
)

// Fallback is rendered for content types without a handler.
const Fallback = "<div>[Unsupported content type]</div>"

const previewLimit = 200

// NewRegistry builds the default content registry. Multimodal parts are
// dispatched through parts.
func NewRegistry(md *markdown.Converter, parts *PartRegistry) *Registry {
	h := &contentHandlers{md: md, parts: parts}
	r := &Registry{}
	r.Register(HandlerFunc(h.text), false, "text")
	r.Register(HandlerFunc(h.multimodal), false, "multimodal_text")
	r.Register(HandlerFunc(renderCode), false, "code")
	r.Register(HandlerFunc(renderExecutionOutput), false, "execution_output")
	r.Register(HandlerFunc(renderTetherQuote), false, "tether_quote")
	r.Register(HandlerFunc(renderBrowsingDisplay), false, "tether_browsing_display")
	r.Register(HandlerFunc(renderSonicWebpage), false, "sonic_webpage")
	r.Register(HandlerFunc(renderAppPairing), false, "app_pairing_content")
	r.Register(HandlerFunc(renderSystemError), false, "system_error")
	r.Register(HandlerFunc(renderThoughts), true, "thoughts")
	r.Register(HandlerFunc(renderReasoningRecap), true, "reasoning_recap")
	r.Register(HandlerFunc(renderUserContext), true, "user_editable_context")
	r.Register(HandlerFunc(renderModelContext), true, "model_editable_context")
	return r
}

type contentHandlers struct {
	md    *markdown.Converter
	parts *PartRegistry
}

func (h *contentHandlers) text(c models.Content, meta map[string]any, _ Context) string {
	var lines []string
	for _, p := range c.Parts() {
		if s, ok := p.(string); ok && s != "" {
			lines = append(lines, s)
		}
	}
	src := transform.StripFootnotes(strings.Join(lines, "\n"))
	return transform.ApplyCitations(h.md.ToHTML(src), meta)
}

func (h *contentHandlers) multimodal(c models.Content, _ map[string]any, rc Context) string {
	var b strings.Builder
	for _, p := range c.Parts() {
		switch part := p.(type) {
		case string:
			b.WriteString(h.md.ToHTML(part))
		case map[string]any:
			if h.parts == nil {
				continue
			}
			if out, ok := h.parts.Render(part, rc); ok {
				b.WriteString(out)
			}
		}
	}
	return b.String()
}

func renderCode(c models.Content, _ map[string]any, _ Context) string {
	return "<pre>" + html.EscapeString(c.String("text")) + "</pre>"
}

func renderExecutionOutput(c models.Content, meta map[string]any, _ Context) string {
	if urls := aggregateImages(meta); len(urls) > 0 {
		out := make([]string, 0, len(urls))
		for _, u := range urls {
			out = append(out, `<div><img src="`+html.EscapeString(u)+`" style="max-width: 100%;"></div>`)
		}
		return strings.Join(out, "\n")
	}
	return "<pre>" + html.EscapeString(c.String("text")) + "</pre>"
}

// aggregateImages returns image urls from a tool run's aggregated result.
func aggregateImages(meta map[string]any) []string {
	var urls []string
	for _, m := range models.AsSlice(models.Lookup(meta, "aggregate_result", "messages")) {
		msg := models.AsMap(m)
		if models.AsString(msg["message_type"]) == "image" {
			urls = append(urls, models.AsString(msg["image_url"]))
		}
	}
	return urls
}

func renderTetherQuote(c models.Content, _ map[string]any, _ Context) string {
	quote := c.String("title")
	if quote == "" {
		quote = c.String("text")
	}
	return "<blockquote>" + html.EscapeString(quote) + "</blockquote>"
}

func renderBrowsingDisplay(_ models.Content, meta map[string]any, _ Context) string {
	list := models.AsSlice(models.Lookup(meta, "_cite_metadata", "metadata_list"))
	out := make([]string, 0, len(list))
	for _, it := range list {
		item := models.AsMap(it)
		url := models.AsString(item["url"])
		title, ok := item["title"].(string)
		if !ok {
			title = url
		}
		out = append(out, `<blockquote><a href="`+html.EscapeString(url)+`">`+html.EscapeString(title)+`</a></blockquote>`)
	}
	return strings.Join(out, "\n")
}

func renderSonicWebpage(c models.Content, _ map[string]any, _ Context) string {
	url := c.String("url")
	title, ok := c["title"].(string)
	if !ok {
		title = url
	}
	return `<div><a href="` + html.EscapeString(url) + `">` + html.EscapeString(title) + `</a></div>`
}

func renderAppPairing(c models.Content, _ map[string]any, _ Context) string {
	var out []string
	for _, w := range models.AsSlice(c["workspaces"]) {
		ws := models.AsMap(w)
		app := html.EscapeString(models.AsString(ws["app_name"]))
		title := html.EscapeString(models.AsString(ws["title"]))
		switch {
		case app != "" && title != "":
			out = append(out, "<div><b>"+app+"</b>: "+title+"</div>")
		case app != "":
			out = append(out, "<div><b>"+app+"</b></div>")
		}
	}
	for _, p := range models.AsSlice(c["context_parts"]) {
		text := models.AsString(models.AsMap(p)["text"])
		if text != "" {
			out = append(out, "<div><i>"+html.EscapeString(truncate(text))+"</i></div>")
		}
	}
	return strings.Join(out, "\n")
}

func renderSystemError(c models.Content, _ map[string]any, _ Context) string {
	name, ok := c["name"].(string)
	if !ok {
		name = "Error"
	}
	return "<div>⚠ <b>" + html.EscapeString(name) + "</b>: " + html.EscapeString(c.String("text")) + "</div>"
}

func renderThoughts(c models.Content, _ map[string]any, _ Context) string {
	var out []string
	for _, t := range models.AsSlice(c["thoughts"]) {
		thought := models.AsMap(t)
		out = append(out, "<div><i><b>"+html.EscapeString(models.AsString(thought["summary"]))+"</b></i></div>")
		if body := models.AsString(thought["content"]); body != "" {
			out = append(out, "<div><i>"+html.EscapeString(body)+"</i></div>")
		}
	}
	return strings.Join(out, "\n")
}

func renderReasoningRecap(c models.Content, _ map[string]any, _ Context) string {
	recap := c.String("content")
	if recap == "" {
		return ""
	}
	return "<div><i>" + html.EscapeString(recap) + "</i></div>"
}

func renderUserContext(c models.Content, _ map[string]any, _ Context) string {
	var out []string
	if profile := c.String("user_profile"); profile != "" {
		out = append(out, "<div><i>[User Profile] "+html.EscapeString(truncate(profile))+"</i></div>")
	}
	if instructions := c.String("user_instructions"); instructions != "" {
		out = append(out, "<div><i>[User Instructions] "+html.EscapeString(truncate(instructions))+"</i></div>")
	}
	return strings.Join(out, "\n")
}

func renderModelContext(c models.Content, _ map[string]any, _ Context) string {
	memory := c.String("model_set_context")
	if memory == "" {
		return ""
	}
	return "<div><i>[ChatGPT Memory] " + html.EscapeString(memory) + "</i></div>"
}

// truncate shortens s to previewLimit runes followed by an ellipsis.
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= previewLimit {
		return s
	}
	return string(r[:previewLimit]) + "..."
}
