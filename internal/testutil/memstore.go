package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/marker"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/notestore"
)

// MemNote is a note held by MemStore.
type MemNote struct {
	ID          string
	Folder      string
	Body        string
	Attachments []models.Attachment
	seq         int
}

// MemStore is an in-memory notestore.Store with call counting and failure
// injection.
type MemStore struct {
	mu    sync.Mutex
	notes map[string]*MemNote
	seq   int

	folders map[string]bool
	calls   map[string]int

	// Fail maps an operation name ("create", "append", ...) to the error it
	// returns.
	Fail map[string]error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		notes:   map[string]*MemNote{},
		folders: map[string]bool{},
		calls:   map[string]int{},
		Fail:    map[string]error{},
	}
}

// Calls returns how often op was invoked.
func (s *MemStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Notes returns every note sorted by creation order.
func (s *MemStore) Notes() []MemNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MemNote, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Put stores a note directly, bypassing failure injection.
func (s *MemStore) Put(folder, body string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[folder] = true
	return s.put(folder, body, nil)
}

func (s *MemStore) put(folder, body string, atts []models.Attachment) string {
	s.seq++
	id := uuid.NewString()
	s.notes[id] = &MemNote{ID: id, Folder: folder, Body: body, Attachments: atts, seq: s.seq}
	return id
}

func (s *MemStore) enter(op string) error {
	s.calls[op]++
	return s.Fail[op]
}

func (s *MemStore) EnsureFolder(_ context.Context, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ensure_folder"); err != nil {
		return err
	}
	s.folders[folder] = true
	return nil
}

func (s *MemStore) Scan(_ context.Context, folder string) (map[string]models.NoteState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("scan"); err != nil {
		return nil, err
	}
	out := map[string]models.NoteState{}
	for _, n := range s.sorted(folder) {
		m, ok := marker.Identify(n.Body)
		if !ok {
			continue
		}
		if _, dup := out[m.ConversationID]; dup {
			continue
		}
		out[m.ConversationID] = models.NoteState{NoteID: n.ID, ConversationID: m.ConversationID, LastMessageID: m.LastMessageID}
	}
	return out, nil
}

func (s *MemStore) Read(_ context.Context, noteID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("read"); err != nil {
		return "", err
	}
	n, ok := s.notes[noteID]
	if !ok {
		return "", fmt.Errorf("memstore: %s: %w", noteID, apperr.ErrNotFound)
	}
	return n.Body, nil
}

func (s *MemStore) Create(_ context.Context, folder, body string, atts []models.Attachment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("create"); err != nil {
		return "", err
	}
	if !s.folders[folder] {
		return "", fmt.Errorf("memstore: folder %q: %w", folder, apperr.ErrNotFound)
	}
	return s.put(folder, body, atts), nil
}

func (s *MemStore) Delete(_ context.Context, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("delete"); err != nil {
		return err
	}
	if _, ok := s.notes[noteID]; !ok {
		return fmt.Errorf("memstore: %s: %w", noteID, apperr.ErrNotFound)
	}
	delete(s.notes, noteID)
	return nil
}

func (s *MemStore) Append(_ context.Context, folder, conversationID, fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("append"); err != nil {
		return err
	}
	for _, n := range s.sorted(folder) {
		if marker.Contains(n.Body, conversationID) {
			n.Body = marker.Strip(n.Body) + fragment
			return nil
		}
	}
	return fmt.Errorf("memstore: append %s: %w", conversationID, apperr.ErrNotFound)
}

func (s *MemStore) Archive(_ context.Context, noteID, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("archive"); err != nil {
		return err
	}
	n, ok := s.notes[noteID]
	if !ok {
		return fmt.Errorf("memstore: %s: %w", noteID, apperr.ErrNotFound)
	}
	dst := notestore.ArchivePath(folder)
	s.folders[dst] = true
	n.Folder = dst
	return nil
}

func (s *MemStore) List(_ context.Context, folder string) ([]models.NoteMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("list"); err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	for _, n := range s.sorted(folder) {
		md := models.NoteMetadata{ID: n.ID, Folder: n.Folder}
		if m, ok := marker.Identify(n.Body); ok {
			md.ConversationID = m.ConversationID
		}
		out = append(out, md)
	}
	return out, nil
}

// Search matches query against note bodies.
func (s *MemStore) Search(_ context.Context, query string, limit int) ([]notestore.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("search"); err != nil {
		return nil, err
	}
	var out []notestore.SearchResult
	for _, n := range s.sorted("") {
		if strings.Contains(n.Body, query) {
			out = append(out, notestore.SearchResult{ID: n.ID, Folder: n.Folder})
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemStore) sorted(folder string) []*MemNote {
	var out []*MemNote
	for _, n := range s.notes {
		if folder == "" || n.Folder == folder {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

var (
	_ notestore.Store    = (*MemStore)(nil)
	_ notestore.Searcher = (*MemStore)(nil)
)
