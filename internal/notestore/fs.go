package notestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/checksum"
	"github.com/starford/chatnotes/internal/marker"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/parser"
)

const (
	noteExt   = ".html"
	assetsExt = ".assets"
)

// FS stores each note as a wrapped HTML file named by its id. Folders map to
// directories; attachments live in a sibling <id>.assets directory.
type FS struct {
	root string // absolute path to destination directory
	mu   sync.Mutex
}

// NewFS creates a new FS store rooted at the given directory, creating it
// when absent.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("notestore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("notestore: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("notestore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("notestore: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute destination directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("notestore: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("notestore: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("notestore: path escapes root: %s", rel)
	}
	return abs, nil
}

func (f *FS) folderDir(folder string) (string, error) {
	parent, child := ParseFolderPath(folder)
	return f.safePath(filepath.Join(parent, child))
}

// EnsureFolder creates the folder directory.
func (f *FS) EnsureFolder(_ context.Context, folder string) error {
	dir, err := f.folderDir(folder)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("notestore: mkdir: %w", err)
	}
	return nil
}

// Scan reads every note directly inside folder and recovers its cursor.
// A missing folder scans as empty.
func (f *FS) Scan(_ context.Context, folder string) (map[string]models.NoteState, error) {
	notes, err := f.notesIn(folder)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.NoteState, len(notes))
	for _, n := range notes {
		m, ok := marker.Identify(n.body)
		if !ok {
			continue
		}
		if _, dup := out[m.ConversationID]; dup {
			continue
		}
		out[m.ConversationID] = models.NoteState{
			NoteID:         n.id,
			ConversationID: m.ConversationID,
			LastMessageID:  m.LastMessageID,
		}
	}
	return out, nil
}

// Read returns the unwrapped body of a note.
func (f *FS) Read(_ context.Context, noteID string) (string, error) {
	p, err := f.locate(noteID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("notestore: read %s: %w", noteID, err)
	}
	return UnwrapDocument(string(data)), nil
}

// Create writes a new note and its attachments.
func (f *FS) Create(_ context.Context, folder, body string, attachments []models.Attachment) (string, error) {
	dir, err := f.folderDir(folder)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("notestore: folder %q: %w", folder, apperr.ErrNotFound)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.NewString()
	for _, a := range attachments {
		name := filepath.Base(a.Name)
		if err := writeAtomic(filepath.Join(dir, id+assetsExt, name), a.Data); err != nil {
			return "", err
		}
	}
	if err := writeAtomic(filepath.Join(dir, id+noteExt), []byte(WrapDocument(body))); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a note file and its attachments.
func (f *FS) Delete(_ context.Context, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.locate(noteID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("notestore: delete %s: %w", noteID, err)
	}
	if err := os.RemoveAll(assetsPath(p)); err != nil {
		return fmt.Errorf("notestore: delete assets %s: %w", noteID, err)
	}
	return nil
}

// Append rewrites the note holding conversationID with fragment added.
func (f *FS) Append(_ context.Context, folder, conversationID, fragment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	notes, err := f.notesIn(folder)
	if err != nil {
		return err
	}
	for _, n := range notes {
		if !marker.Contains(n.body, conversationID) {
			continue
		}
		body := marker.Strip(n.body) + fragment
		return writeAtomic(n.path, []byte(WrapDocument(body)))
	}
	return fmt.Errorf("notestore: append %s: %w", conversationID, apperr.ErrNotFound)
}

// Archive moves a note and its attachments into folder/Archive.
func (f *FS) Archive(_ context.Context, noteID, folder string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.locate(noteID)
	if err != nil {
		return err
	}
	dir, err := f.folderDir(folder)
	if err != nil {
		return err
	}
	dst := filepath.Join(dir, ArchiveFolder)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("notestore: mkdir archive: %w", err)
	}
	if err := os.Rename(p, filepath.Join(dst, filepath.Base(p))); err != nil {
		return fmt.Errorf("notestore: archive: %w", err)
	}
	assets := assetsPath(p)
	if _, err := os.Stat(assets); err == nil {
		if err := os.Rename(assets, filepath.Join(dst, filepath.Base(assets))); err != nil {
			return fmt.Errorf("notestore: archive assets: %w", err)
		}
	}
	return nil
}

// List returns metadata for notes in folder, or every note when folder is "".
func (f *FS) List(_ context.Context, folder string) ([]models.NoteMetadata, error) {
	var notes []fsNote
	var err error
	if folder == "" {
		notes, err = f.allNotes()
	} else {
		notes, err = f.notesIn(folder)
	}
	if err != nil {
		return nil, err
	}
	out := make([]models.NoteMetadata, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.metadata())
	}
	return out, nil
}

// Search matches query case-insensitively against note titles and text.
func (f *FS) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(strings.TrimSpace(query))
	notes, err := f.allNotes()
	if err != nil {
		return nil, err
	}
	var out []SearchResult
	for _, n := range notes {
		parsed := parser.Parse(n.body)
		text := strings.ToLower(parsed.Text)
		idx := strings.Index(text, q)
		if idx < 0 && !strings.Contains(strings.ToLower(parsed.Title), q) {
			continue
		}
		out = append(out, SearchResult{
			ID:      n.id,
			Folder:  n.folder,
			Title:   parsed.Title,
			Snippet: snippet(parsed.Text, idx),
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func snippet(text string, idx int) string {
	r := []rune(text)
	start := 0
	if idx > len(text) {
		idx = len(text)
	}
	if idx > 0 {
		start = len([]rune(text[:idx])) - 40
	}
	if start < 0 {
		start = 0
	}
	end := start + 200
	if end > len(r) {
		end = len(r)
	}
	return string(r[start:end])
}

// Attachment reads one file from the note's assets directory.
func (f *FS) Attachment(_ context.Context, noteID, name string) (models.Attachment, error) {
	if name == "" || filepath.Base(name) != name || name == ".." {
		return models.Attachment{}, fmt.Errorf("notestore: invalid attachment name %q", name)
	}
	p, err := f.locate(noteID)
	if err != nil {
		return models.Attachment{}, err
	}
	data, err := os.ReadFile(filepath.Join(assetsPath(p), name))
	if errors.Is(err, os.ErrNotExist) {
		return models.Attachment{}, fmt.Errorf("notestore: attachment %s/%s: %w", noteID, name, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Attachment{}, fmt.Errorf("notestore: read attachment: %w", err)
	}
	return models.Attachment{Name: name, MIMEType: mime.TypeByExtension(filepath.Ext(name)), Data: data}, nil
}

type fsNote struct {
	id     string
	folder string
	path   string
	body   string
	info   fs.FileInfo
}

func (n fsNote) metadata() models.NoteMetadata {
	md := models.NoteMetadata{
		ID:        n.id,
		Folder:    n.folder,
		Title:     parser.Parse(n.body).Title,
		Checksum:  checksum.Sum(n.body),
		UpdatedAt: n.info.ModTime(),
	}
	if m, ok := marker.Identify(n.body); ok {
		md.ConversationID = m.ConversationID
	}
	return md
}

func (f *FS) notesIn(folder string) ([]fsNote, error) {
	dir, err := f.folderDir(folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notestore: list %s: %w", folder, err)
	}
	var out []fsNote
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), noteExt) {
			continue
		}
		n, err := f.load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *FS) allNotes() ([]fsNote, error) {
	var out []fsNote
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), noteExt) {
			return nil
		}
		n, err := f.load(p)
		if err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("notestore: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

func (f *FS) load(p string) (fsNote, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return fsNote{}, fmt.Errorf("notestore: read %s: %w", p, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return fsNote{}, fmt.Errorf("notestore: stat %s: %w", p, err)
	}
	rel, _ := filepath.Rel(f.root, filepath.Dir(p))
	if rel == "." {
		rel = ""
	}
	return fsNote{
		id:     strings.TrimSuffix(filepath.Base(p), noteExt),
		folder: filepath.ToSlash(rel),
		path:   p,
		body:   UnwrapDocument(string(data)),
		info:   info,
	}, nil
}

// locate finds the file of a note anywhere under the root.
func (f *FS) locate(noteID string) (string, error) {
	if _, err := uuid.Parse(noteID); err != nil {
		return "", fmt.Errorf("notestore: note %q: %w", noteID, apperr.ErrNotFound)
	}
	want := noteID + noteExt
	var found string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && d.Name() == want {
			found = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("notestore: locate %s: %w", noteID, err)
	}
	if found == "" {
		return "", fmt.Errorf("notestore: note %s: %w", noteID, apperr.ErrNotFound)
	}
	return found, nil
}

func assetsPath(notePath string) string {
	return strings.TrimSuffix(notePath, noteExt) + assetsExt
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("notestore: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".chatnotes-tmp-*")
	if err != nil {
		return fmt.Errorf("notestore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("notestore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("notestore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("notestore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("notestore: rename: %w", err)
	}
	success = true
	return nil
}

var (
	_ Store            = (*FS)(nil)
	_ Searcher         = (*FS)(nil)
	_ AttachmentReader = (*FS)(nil)
)
