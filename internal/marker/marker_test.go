package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const convID = "6f1d2a3b-4c5d-4e6f-8a9b-0c1d2e3f4a5b"

func TestFormat(t *testing.T) {
	assert.Equal(t,
		`<div style="font-size: x-small; color: gray;">`+convID+`:msg-2</div>`,
		Format(convID, "msg-2"))
}

func TestExtractRoundTrip(t *testing.T) {
	body := "<div>content</div>" + Format(convID, "a&b")
	m, ok := Extract(body)
	require.True(t, ok)
	assert.Equal(t, convID, m.ConversationID)
	assert.Equal(t, "a&b", m.LastMessageID)
}

func TestExtractLastWins(t *testing.T) {
	body := Format(convID, "first") + "<div>more</div>" + Format(convID, "second")
	m, ok := Extract(body)
	require.True(t, ok)
	assert.Equal(t, "second", m.LastMessageID)
}

func TestExtractRejectsNonUUID(t *testing.T) {
	_, ok := Extract(Format("conv-1", "m1"))
	assert.False(t, ok)
}

func TestStrip(t *testing.T) {
	body := "<div>a</div>" + Format(convID, "m1")
	assert.Equal(t, "<div>a</div>", Strip(body))
}

func TestConversationIDs(t *testing.T) {
	other := "00000000-1111-2222-3333-444444444444"
	body := Format(convID, "m1") + Format(other, "x") + Format(convID, "m2")
	assert.Equal(t, []string{convID, other}, ConversationIDs(body))
	assert.True(t, Contains(body, other))
	assert.False(t, Contains(body, "99999999-1111-2222-3333-444444444444"))
}

func TestIdentify(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Marker
		ok   bool
	}{
		{"uuid cursor", "<div>x</div>" + Format(convID, "m1"), Marker{ConversationID: convID, LastMessageID: "m1"}, true},
		{"plain id", "<div>x</div>" + Format("conv-plain-id", "m1"), Marker{ConversationID: "conv-plain-id"}, true},
		{"colon in id", Format("a:b", "m1"), Marker{ConversationID: "a:b"}, true},
		{"escaped id", Format("x<y", "m1"), Marker{ConversationID: "x<y"}, true},
		{"empty cursor", Format(convID, ""), Marker{ConversationID: convID}, true},
		{"last footer wins", Format("old-id", "m1") + Format(convID, "m2"), Marker{ConversationID: convID, LastMessageID: "m2"}, true},
		{"no footer", "<div>" + convID + ":m9</div>", Marker{ConversationID: convID, LastMessageID: "m9"}, true},
		{"footer without cursor", `<div style="font-size: x-small; color: gray;">note</div>`, Marker{}, false},
		{"nothing", "<div>hand written</div>", Marker{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Identify(tt.body)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(convID, "m1"))
	assert.True(t, Recoverable(convID, "a&b"))
	assert.False(t, Recoverable(convID, ""))
	assert.False(t, Recoverable(convID, "has space"))
	assert.False(t, Recoverable("conv-plain-id", "m1"))
}
