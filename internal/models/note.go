package models

import "time"

// NoteState is the sync-side view of a note already present in the destination.
// It is rebuilt by each folder scan and never mutated in place.
type NoteState struct {
	NoteID         string `json:"note_id"`
	ConversationID string `json:"conversation_id"`
	LastMessageID  string `json:"last_message_id"`
}

// Attachment is a binary payload stored alongside a created note.
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	ID             string    `json:"id"`
	Folder         string    `json:"folder"`
	Title          string    `json:"title,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Checksum       string    `json:"checksum"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Note is a stored note with its body.
type Note struct {
	NoteMetadata
	Body string `json:"body"`
}
