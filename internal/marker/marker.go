// Package marker formats and recovers the footer line that records which
// conversation a note holds and the last message synced into it.
package marker

import (
	"html"
	"regexp"
	"strings"
)

// Version identifies the footer layout written by Format. Notes written
// before versioning carry the same layout and are read as Version 1.
const Version = 1

const (
	openTag  = `<div style="font-size: x-small; color: gray;">`
	closeTag = `</div>`
)

var (
	cursorPattern  = regexp.MustCompile(`([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}):([^\s<]+)`)
	elementPattern = regexp.MustCompile(`<div style="font-size: x-small; color: gray;">([^<]*)</div>`)
)

// Marker is a recovered sync cursor.
type Marker struct {
	ConversationID string
	LastMessageID  string
}

// Format renders the footer element for a conversation and its last message.
func Format(conversationID, lastMessageID string) string {
	return openTag + html.EscapeString(conversationID) + ":" + html.EscapeString(lastMessageID) + closeTag
}

// Extract returns the last cursor found in body.
func Extract(body string) (Marker, bool) {
	all := cursorPattern.FindAllStringSubmatch(body, -1)
	if len(all) == 0 {
		return Marker{}, false
	}
	m := all[len(all)-1]
	return Marker{
		ConversationID: m[1],
		LastMessageID:  html.UnescapeString(m[2]),
	}, true
}

// Identify reads the last footer element of body. A footer whose cursor
// cannot be recovered, because the conversation id is not UUID-shaped or the
// message id is empty, still names its conversation but carries an empty
// LastMessageID. Bodies without a footer element fall back to Extract.
func Identify(body string) (Marker, bool) {
	all := elementPattern.FindAllStringSubmatch(body, -1)
	if len(all) == 0 {
		return Extract(body)
	}
	text := all[len(all)-1][1]
	if m := cursorPattern.FindStringSubmatch(text); m != nil && m[0] == text {
		return Marker{ConversationID: m[1], LastMessageID: html.UnescapeString(m[2])}, true
	}
	i := strings.LastIndex(text, ":")
	if i <= 0 {
		return Marker{}, false
	}
	return Marker{ConversationID: html.UnescapeString(text[:i])}, true
}

// Recoverable reports whether the footer Format writes for these ids reads
// back as the same cursor.
func Recoverable(conversationID, lastMessageID string) bool {
	m, ok := Identify(Format(conversationID, lastMessageID))
	return ok && m == Marker{ConversationID: conversationID, LastMessageID: lastMessageID}
}

// ConversationIDs returns every conversation id referenced by a cursor in
// body, in order of appearance and without duplicates.
func ConversationIDs(body string) []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, m := range cursorPattern.FindAllStringSubmatch(body, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}

// Contains reports whether body holds a cursor for conversationID.
func Contains(body, conversationID string) bool {
	for _, m := range cursorPattern.FindAllStringSubmatch(body, -1) {
		if m[1] == conversationID {
			return true
		}
	}
	return false
}

// Strip removes every footer element from body.
func Strip(body string) string {
	return elementPattern.ReplaceAllString(body, "")
}
