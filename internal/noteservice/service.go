// Package noteservice is the read side over a note store shared by the
// HTTP API and the MCP server, plus an on-demand sync trigger.
package noteservice

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/checksum"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/notestore"
	"github.com/starford/chatnotes/internal/parser"
	"github.com/starford/chatnotes/internal/syncer"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID             string    `json:"id"`
	Folder         string    `json:"folder,omitempty"`
	Title          string    `json:"title"`
	ConversationID string    `json:"conversation_id,omitempty"`
	LastMessageID  string    `json:"last_message_id,omitempty"`
	Content        string    `json:"content"`
	Text           string    `json:"text"`
	Sections       []string  `json:"sections"`
	Links          []string  `json:"links"`
	Checksum       string    `json:"checksum"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID             string    `json:"id"`
	Folder         string    `json:"folder"`
	Title          string    `json:"title"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Checksum       string    `json:"checksum"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SyncFunc runs one sync batch.
type SyncFunc func(ctx context.Context) (syncer.Summary, error)

// Service reads notes from a store and triggers syncs.
type Service struct {
	store notestore.Store
	sync  SyncFunc

	mu      sync.Mutex
	running bool
}

// NewService creates a new note service. syncFn may be nil, in which case
// SyncNow returns an error.
func NewService(store notestore.Store, syncFn SyncFunc) *Service {
	return &Service{store: store, sync: syncFn}
}

// GetNote reads a note by id and parses its body.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteDetail, error) {
	body, err := s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	res := parser.Parse(body)
	d := &NoteDetail{
		ID:       id,
		Title:    res.Title,
		Content:  body,
		Text:     res.Text,
		Sections: nonNilSlice(res.Sections),
		Links:    nonNilSlice(res.Links),
		Checksum: checksum.Sum(body),
	}
	if res.HasCursor {
		d.ConversationID = res.Cursor.ConversationID
		d.LastMessageID = res.Cursor.LastMessageID
	}
	if md, ok := s.lookup(ctx, id); ok {
		d.Folder = md.Folder
		d.UpdatedAt = md.UpdatedAt
	}
	return d, nil
}

func (s *Service) lookup(ctx context.Context, id string) (models.NoteMetadata, bool) {
	all, err := s.store.List(ctx, "")
	if err != nil {
		return models.NoteMetadata{}, false
	}
	for _, md := range all {
		if md.ID == id {
			return md, true
		}
	}
	return models.NoteMetadata{}, false
}

// ListNotes returns paginated notes of folder ("" for all), sorted by
// "updated_at" (newest first, the default) or "title".
func (s *Service) ListNotes(ctx context.Context, folder string, limit, offset int, sortBy string) ([]NoteListItem, int, error) {
	rows, err := s.store.List(ctx, folder)
	if err != nil {
		return nil, 0, err
	}
	switch sortBy {
	case "title":
		sort.SliceStable(rows, func(i, j int) bool {
			return strings.ToLower(rows[i].Title) < strings.ToLower(rows[j].Title)
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].UpdatedAt.After(rows[j].UpdatedAt) })
	}

	total := len(rows)
	if limit <= 0 {
		limit = 50
	}
	offset = min(max(offset, 0), total)
	end := min(offset+limit, total)

	items := make([]NoteListItem, 0, end-offset)
	for _, r := range rows[offset:end] {
		items = append(items, NoteListItem{
			ID:             r.ID,
			Folder:         r.Folder,
			Title:          r.Title,
			ConversationID: r.ConversationID,
			Checksum:       r.Checksum,
			UpdatedAt:      r.UpdatedAt,
		})
	}
	return items, total, nil
}

// Search uses the store's own search when available and otherwise scans
// note text.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]notestore.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if searcher, ok := s.store.(notestore.Searcher); ok {
		res, err := searcher.Search(ctx, query, limit)
		return nonNilSlice(res), err
	}
	rows, err := s.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	out := []notestore.SearchResult{}
	for _, md := range rows {
		body, err := s.store.Read(ctx, md.ID)
		if err != nil {
			continue
		}
		res := parser.Parse(body)
		if !strings.Contains(strings.ToLower(res.Text), q) {
			continue
		}
		out = append(out, notestore.SearchResult{ID: md.ID, Folder: md.Folder, Title: res.Title, Snippet: res.Text})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Attachment returns one attachment of a note.
func (s *Service) Attachment(ctx context.Context, id, name string) (models.Attachment, error) {
	r, ok := s.store.(notestore.AttachmentReader)
	if !ok {
		return models.Attachment{}, apperr.ErrNotFound
	}
	return r.Attachment(ctx, id, name)
}

// NoteByConversation returns the note holding a ChatGPT conversation. When
// a conversation has been archived and re-created, the note outside the
// Archive folder wins.
func (s *Service) NoteByConversation(ctx context.Context, conversationID string) (*NoteDetail, error) {
	all, err := s.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var found *models.NoteMetadata
	for i, md := range all {
		if md.ConversationID != conversationID {
			continue
		}
		if found == nil || isArchived(found.Folder) && !isArchived(md.Folder) {
			found = &all[i]
		}
	}
	if found == nil {
		return nil, apperr.ErrNotFound
	}
	return s.GetNote(ctx, found.ID)
}

func isArchived(folder string) bool {
	return strings.HasSuffix(folder, "/"+notestore.ArchiveFolder)
}

// DeleteNote removes a note. The next sync recreates it from the source.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// SyncNow runs a sync batch unless one is already running, in which case it
// returns apperr.ErrConflict.
func (s *Service) SyncNow(ctx context.Context) (syncer.Summary, error) {
	if s.sync == nil {
		return syncer.Summary{}, errors.New("noteservice: sync is not configured")
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return syncer.Summary{}, apperr.ErrConflict
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()
	return s.sync(ctx)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
