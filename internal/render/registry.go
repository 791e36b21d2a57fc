// Package render turns conversations into note HTML. Content shapes are
// dispatched through explicit registries built once by the caller.
package render

import (
	"maps"
	"slices"

	"github.com/starford/chatnotes/internal/models"
)

// Context carries per-render switches.
type Context struct {
	// RenderInternals enables content types hidden from normal output.
	RenderInternals bool
}

// Handler renders one content shape to an HTML fragment.
type Handler interface {
	Render(content models.Content, meta map[string]any, rc Context) string
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(content models.Content, meta map[string]any, rc Context) string

// Render calls f.
func (f HandlerFunc) Render(content models.Content, meta map[string]any, rc Context) string {
	return f(content, meta, rc)
}

type registration struct {
	handler  Handler
	internal bool
}

// Registry maps a content_type discriminator to its Handler.
// The zero value is empty and ready to use.
type Registry struct {
	handlers map[string]registration
}

// Register binds h to each of types. Internal handlers only run when the
// render context opts in.
func (r *Registry) Register(h Handler, internal bool, types ...string) {
	if r.handlers == nil {
		r.handlers = make(map[string]registration)
	}
	for _, t := range types {
		r.handlers[t] = registration{handler: h, internal: internal}
	}
}

// Render dispatches content by its type. ok is false only when no handler is
// registered; a skipped internal type yields "" with ok true.
func (r *Registry) Render(content models.Content, meta map[string]any, rc Context) (html string, ok bool) {
	reg, found := r.handlers[content.Type()]
	if !found {
		return "", false
	}
	if reg.internal && !rc.RenderInternals {
		return "", true
	}
	return reg.handler.Render(content, meta, rc), true
}

// Skips reports whether content is an internal type left out of rc. The
// renderer drops such messages entirely, author heading included.
func (r *Registry) Skips(content models.Content, rc Context) bool {
	reg, found := r.handlers[content.Type()]
	return found && reg.internal && !rc.RenderInternals
}

// Types lists registered content types in sorted order.
func (r *Registry) Types() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}

// IsInternal reports whether t is registered as internal.
func (r *Registry) IsInternal(t string) bool {
	return r.handlers[t].internal
}

// PartHandler renders one object part of a multimodal message.
type PartHandler interface {
	RenderPart(part map[string]any, rc Context) string
}

// PartHandlerFunc adapts a function to PartHandler.
type PartHandlerFunc func(part map[string]any, rc Context) string

// RenderPart calls f.
func (f PartHandlerFunc) RenderPart(part map[string]any, rc Context) string {
	return f(part, rc)
}

type partRegistration struct {
	handler  PartHandler
	internal bool
}

// PartRegistry maps part content types to handlers. It is separate from
// Registry because parts and messages share discriminator names.
type PartRegistry struct {
	handlers map[string]partRegistration
}

// Register binds h to each of types.
func (r *PartRegistry) Register(h PartHandler, internal bool, types ...string) {
	if r.handlers == nil {
		r.handlers = make(map[string]partRegistration)
	}
	for _, t := range types {
		r.handlers[t] = partRegistration{handler: h, internal: internal}
	}
}

// Render dispatches part by its content_type. Parts without a type or
// without a handler report ok false.
func (r *PartRegistry) Render(part map[string]any, rc Context) (html string, ok bool) {
	t := models.AsString(part["content_type"])
	if t == "" {
		return "", false
	}
	reg, found := r.handlers[t]
	if !found {
		return "", false
	}
	if reg.internal && !rc.RenderInternals {
		return "", true
	}
	return reg.handler.RenderPart(part, rc), true
}

// Types lists registered part types in sorted order.
func (r *PartRegistry) Types() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}
