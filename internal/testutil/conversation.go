package testutil

import "github.com/starford/chatnotes/internal/models"

// ConversationID is a UUID-shaped id recognised by footer scans.
const ConversationID = "6f1d2a3b-4c5d-4e6f-8a9b-0c1d2e3f4a5b"

// TextMessage builds a text message from role with a single part.
func TextMessage(id, role, text string, createTime float64) models.Message {
	return Message(id, role, models.Content{"content_type": "text", "parts": []any{text}}, createTime)
}

// Message builds a message with arbitrary content and empty metadata.
func Message(id, role string, content models.Content, createTime float64) models.Message {
	return models.Message{
		ID:         id,
		Author:     models.NewAuthor(role, "", nil),
		CreateTime: createTime,
		Content:    content,
		Metadata:   map[string]any{},
	}
}

// Conversation builds a conversation with ConversationID.
func Conversation(title string, msgs ...models.Message) *models.Conversation {
	return ConversationWithID(ConversationID, title, msgs...)
}

// ConversationWithID builds a conversation with the given id.
func ConversationWithID(id, title string, msgs ...models.Message) *models.Conversation {
	var update float64
	for _, m := range msgs {
		update = max(update, m.CreateTime)
	}
	return &models.Conversation{
		ID:         id,
		Title:      title,
		CreateTime: 1,
		UpdateTime: update,
		Messages:   msgs,
	}
}
