// Package models defines the domain types for chatnotes.
package models

import "maps"

// Author identifies who produced a message.
type Author struct {
	Role     string         `json:"role"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// NewAuthor builds an Author that owns its metadata map.
func NewAuthor(role, name string, metadata map[string]any) Author {
	md := make(map[string]any, len(metadata))
	maps.Copy(md, metadata)
	return Author{Role: role, Name: name, Metadata: md}
}

// Message is one entry of a conversation.
type Message struct {
	ID         string         `json:"id"`
	Author     Author         `json:"author"`
	CreateTime float64        `json:"create_time"`
	Content    Content        `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

// Recipient returns the metadata recipient and whether it was set.
func (m Message) Recipient() (string, bool) {
	v, ok := m.Metadata["recipient"]
	if !ok || v == nil {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// Conversation is an ordered list of messages. The order is fixed by the
// archive parser and is never re-sorted afterwards.
type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreateTime float64   `json:"create_time"`
	UpdateTime float64   `json:"update_time"`
	Messages   []Message `json:"messages"`
}

// IndexOf returns the position of the message with the given id, or -1.
func (c *Conversation) IndexOf(id string) int {
	for i, m := range c.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// LastMessageID returns the id of the final message, or "".
func (c *Conversation) LastMessageID() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[len(c.Messages)-1].ID
}
