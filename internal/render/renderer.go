package render

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/chatnotes/internal/markdown"
	"github.com/starford/chatnotes/internal/marker"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/transform"
)

// Document is the result of rendering a conversation.
type Document struct {
	Body string
	// LastMessageID is the cursor written into the footer, "" when none.
	LastMessageID string
	// Messages counts rendered messages.
	Messages    int
	Attachments []models.Attachment
}

// Empty reports whether nothing was rendered.
func (d Document) Empty() bool { return d.Body == "" }

// Option configures a Renderer.
type Option func(*Renderer)

// WithPolicy replaces the visibility policy.
func WithPolicy(p Policy) Option {
	return func(r *Renderer) { r.policy = p }
}

// WithRenderInternals toggles internal content types.
func WithRenderInternals(on bool) Option {
	return func(r *Renderer) { r.rc.RenderInternals = on }
}

// Renderer assembles message fragments into note bodies.
type Renderer struct {
	registry *Registry
	policy   Policy
	rc       Context
}

// NewRenderer returns a Renderer dispatching through registry.
func NewRenderer(registry *Registry, opts ...Option) *Renderer {
	r := &Renderer{registry: registry, policy: DefaultPolicy()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Default returns a Renderer over the standard handler set.
func Default(opts ...Option) *Renderer {
	return NewRenderer(NewRegistry(markdown.New(), NewPartRegistry()), opts...)
}

// Full renders the whole conversation: title, every visible message and the
// footer cursor. The footer is written even for a conversation without
// messages so the note can be found again; its empty cursor forces a full
// rewrite on the next sync. Data URL images are collected as attachments.
func (r *Renderer) Full(conv *models.Conversation) Document {
	var b strings.Builder
	b.WriteString("<div><h1>" + html.EscapeString(conv.Title) + "</h1></div>")
	b.WriteString(transform.Spacer)

	n, last := r.messages(&b, conv.Messages)
	if last == "" {
		last = conv.LastMessageID()
	}
	b.WriteString(marker.Format(conv.ID, last))
	return Document{
		Body:          b.String(),
		LastMessageID: last,
		Messages:      n,
		Attachments:   r.attachments(conv.Messages),
	}
}

// Append renders the messages strictly after afterID with a fresh footer.
// An unknown afterID renders from the start. When no message survives the
// result is empty.
func (r *Renderer) Append(conv *models.Conversation, afterID string) Document {
	start := conv.IndexOf(afterID) + 1
	var b strings.Builder
	n, last := r.messages(&b, conv.Messages[start:])
	if n == 0 {
		return Document{}
	}
	b.WriteString(marker.Format(conv.ID, last))
	return Document{Body: b.String(), LastMessageID: last, Messages: n}
}

// Visible reports whether m passes the policy. Messages whose content type
// is internal are dropped separately unless internals are rendered.
func (r *Renderer) Visible(m models.Message) bool {
	return r.policy.Visible(m)
}

func (r *Renderer) messages(b *strings.Builder, msgs []models.Message) (count int, last string) {
	for _, m := range msgs {
		if !r.policy.Visible(m) || r.registry.Skips(m.Content, r.rc) {
			continue
		}
		b.WriteString("<div><h2>" + html.EscapeString(AuthorLabel(m.Author)) + "</h2></div>")
		b.WriteString(transform.Spacer)
		b.WriteString(r.content(m))
		b.WriteString(transform.Spacer)
		count++
		last = m.ID
	}
	return count, last
}

func (r *Renderer) content(m models.Message) string {
	out, ok := r.registry.Render(m.Content, m.Metadata, r.rc)
	if !ok {
		return Fallback
	}
	return out
}

// AuthorLabel returns the heading shown above a message.
func AuthorLabel(a models.Author) string {
	switch a.Role {
	case "assistant":
		return "ChatGPT"
	case "user":
		return "You"
	case "tool":
		if a.Name != "" {
			return "Plugin (" + a.Name + ")"
		}
		return "Plugin"
	}
	return capitalize(a.Role)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
