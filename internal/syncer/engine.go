// Package syncer decides, per conversation, whether its note is created,
// appended to, overwritten or left alone, and drives whole-archive batches.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/marker"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/notestore"
	"github.com/starford/chatnotes/internal/render"
)

// ErrMissingID is returned for conversations without an id.
var ErrMissingID = errors.New("syncer: conversation has no id")

// Action is the decision taken for one conversation.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionAppend
	ActionOverwrite
	ActionUpToDate
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionAppend:
		return "append"
	case ActionOverwrite:
		return "overwrite"
	case ActionUpToDate:
		return "up-to-date"
	}
	return "none"
}

// Outcome reports what happened to one conversation.
type Outcome struct {
	ConversationID string
	Title          string
	Action         Action
	NoteID         string
	LastMessageID  string
	Messages       int
	// Reason explains an overwrite that was not requested.
	Reason string
	DryRun bool
	Err    error
}

// Failed reports whether the conversation could not be synced.
func (o Outcome) Failed() bool { return o.Err != nil }

// Options tune an Engine.
type Options struct {
	// Overwrite replaces existing notes instead of appending.
	Overwrite bool
	// DryRun decides and renders without touching the store.
	DryRun bool
	// CopyDir, when set, receives a file copy of every synced note.
	CopyDir string
}

// Engine syncs single conversations into one folder of a store.
type Engine struct {
	store    notestore.Store
	renderer *render.Renderer
	folder   string
	opts     Options
	logger   *slog.Logger
}

// NewEngine returns an Engine writing into folder.
func NewEngine(store notestore.Store, renderer *render.Renderer, folder string, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, renderer: renderer, folder: folder, opts: opts, logger: logger}
}

// Sync brings the note for conv up to date. existing is the note state found
// by the folder scan, nil when the conversation has no note yet.
func (e *Engine) Sync(ctx context.Context, conv *models.Conversation, existing *models.NoteState) Outcome {
	out := Outcome{ConversationID: conv.ID, Title: conv.Title, DryRun: e.opts.DryRun}
	if conv.ID == "" {
		out.Err = ErrMissingID
		return out
	}

	switch {
	case existing == nil:
		return e.create(ctx, conv, out)
	case e.opts.Overwrite:
		return e.overwrite(ctx, conv, existing, out)
	}

	cursor, ok := e.cursor(ctx, conv, existing)
	if !ok {
		out.Reason = "cursor not recoverable"
		return e.overwrite(ctx, conv, existing, out)
	}
	if conv.IndexOf(cursor) < 0 {
		out.Reason = "cursor not in conversation"
		return e.overwrite(ctx, conv, existing, out)
	}

	doc := e.renderer.Append(conv, cursor)
	out.NoteID = existing.NoteID
	if doc.Empty() {
		out.Action = ActionUpToDate
		out.LastMessageID = cursor
		return out
	}
	out.Action = ActionAppend
	out.LastMessageID = doc.LastMessageID
	out.Messages = doc.Messages
	if e.opts.DryRun {
		return out
	}

	if err := e.store.Append(ctx, e.folder, conv.ID, doc.Body); err != nil {
		e.logger.Warn("sync: append failed, overwriting",
			slog.String("conversation", conv.ID),
			slog.String("title", conv.Title),
			slog.String("error", err.Error()))
		out.Reason = "append failed: " + err.Error()
		return e.overwrite(ctx, conv, existing, out)
	}
	e.copy(conv, out)
	return out
}

// cursor returns the last synced message id of the existing note. The scan
// result is used when present, otherwise the body is read back.
func (e *Engine) cursor(ctx context.Context, conv *models.Conversation, existing *models.NoteState) (string, bool) {
	if existing.LastMessageID != "" {
		return existing.LastMessageID, true
	}
	body, err := e.store.Read(ctx, existing.NoteID)
	if err != nil {
		return "", false
	}
	m, ok := marker.Identify(body)
	if !ok || m.ConversationID != conv.ID || m.LastMessageID == "" {
		return "", false
	}
	return m.LastMessageID, true
}

func (e *Engine) create(ctx context.Context, conv *models.Conversation, out Outcome) Outcome {
	doc := e.renderer.Full(conv)
	out.Action = ActionCreate
	out.LastMessageID = doc.LastMessageID
	out.Messages = doc.Messages
	if e.opts.DryRun {
		return out
	}
	id, err := e.store.Create(ctx, e.folder, doc.Body, doc.Attachments)
	if err != nil {
		out.Err = fmt.Errorf("create note: %w", err)
		return out
	}
	out.NoteID = id
	e.copy(conv, out)
	return out
}

// overwrite deletes the existing note by id and creates a fresh one. A
// failed create after a successful delete is reported as a partial apply.
func (e *Engine) overwrite(ctx context.Context, conv *models.Conversation, existing *models.NoteState, out Outcome) Outcome {
	doc := e.renderer.Full(conv)
	out.Action = ActionOverwrite
	out.NoteID = existing.NoteID
	out.LastMessageID = doc.LastMessageID
	out.Messages = doc.Messages
	if e.opts.DryRun {
		return out
	}
	if err := e.store.Delete(ctx, existing.NoteID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		out.Err = fmt.Errorf("delete note %s: %w", existing.NoteID, err)
		return out
	}
	id, err := e.store.Create(ctx, e.folder, doc.Body, doc.Attachments)
	if err != nil {
		out.Err = fmt.Errorf("%w: note %s deleted, create failed: %v", apperr.ErrPartialApply, existing.NoteID, err)
		return out
	}
	out.NoteID = id
	e.copy(conv, out)
	return out
}

func (e *Engine) copy(conv *models.Conversation, out Outcome) {
	if e.opts.CopyDir == "" {
		return
	}
	if err := writeCopy(e.opts.CopyDir, conv, e.renderer.Full(conv).Body); err != nil {
		e.logger.Warn("sync: copy failed",
			slog.String("conversation", conv.ID),
			slog.String("dir", e.opts.CopyDir),
			slog.String("error", err.Error()))
	}
}
