package render

import "github.com/starford/chatnotes/internal/models"

// Policy decides which messages appear in a note. It is kept apart from the
// renderer so product rules can change without touching assembly code.
type Policy struct {
	// HiddenTypes are content types never shown, not even as a heading.
	HiddenTypes map[string]bool
	// Recipient is the routing value of messages meant for the reader.
	Recipient string
	// ToolVisible reports whether a tool-authored message is worth showing.
	ToolVisible func(models.Message) bool
}

// DefaultPolicy returns the standard visibility rules.
func DefaultPolicy() Policy {
	return Policy{
		HiddenTypes: map[string]bool{"model_editable_context": true},
		Recipient:   "all",
		ToolVisible: toolHasVisibleContent,
	}
}

// Visible applies the rules in order: hidden type, recipient, tool output.
func (p Policy) Visible(m models.Message) bool {
	if p.HiddenTypes[m.Content.Type()] {
		return false
	}
	if r, ok := m.Recipient(); ok && r != p.Recipient {
		return false
	}
	if m.Author.Role == "tool" && (p.ToolVisible == nil || !p.ToolVisible(m)) {
		return false
	}
	return true
}

func toolHasVisibleContent(m models.Message) bool {
	switch m.Content.Type() {
	case "multimodal_text":
		return true
	case "execution_output":
		return len(aggregateImages(m.Metadata)) > 0
	}
	return false
}
