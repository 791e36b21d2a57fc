package sse

import "github.com/starford/chatnotes/internal/syncer"

// SyncSummary is the payload of sync.completed.
type SyncSummary struct {
	Folder      string `json:"folder"`
	Status      string `json:"status"`
	Synced      int    `json:"synced"`
	Failed      int    `json:"failed"`
	Archived    int    `json:"archived"`
	Created     int    `json:"created"`
	Appended    int    `json:"appended"`
	Overwritten int    `json:"overwritten"`
}

// Observer forwards sync changes to the broker.
type Observer struct {
	b *Broker
}

// NewObserver returns a syncer.Observer publishing on b.
func NewObserver(b *Broker) *Observer { return &Observer{b: b} }

func (o *Observer) NoteSynced(folder string, out syncer.Outcome) {
	if out.Failed() || out.DryRun {
		return
	}
	kind := ""
	switch out.Action {
	case syncer.ActionCreate:
		kind = "created"
	case syncer.ActionAppend:
		kind = "appended"
	case syncer.ActionOverwrite:
		kind = "overwritten"
	default:
		return
	}
	o.b.PublishNoteEvent(kind, NoteChange{
		Folder:         folder,
		ConversationID: out.ConversationID,
		NoteID:         out.NoteID,
		Title:          out.Title,
	})
}

func (o *Observer) NoteArchived(folder, conversationID, noteID string) {
	o.b.PublishNoteEvent("archived", NoteChange{Folder: folder, ConversationID: conversationID, NoteID: noteID})
}

func (o *Observer) BatchCompleted(folder string, s syncer.Summary) {
	o.b.Publish(Event{Type: "sync.completed", Data: SyncSummary{
		Folder:      folder,
		Status:      s.Status.String(),
		Synced:      s.Synced,
		Failed:      s.Failed,
		Archived:    s.Archived,
		Created:     s.Created,
		Appended:    s.Appended,
		Overwritten: s.Overwritten,
	}})
}

var _ syncer.Observer = (*Observer)(nil)
