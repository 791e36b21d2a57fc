// Package notestore defines the note destination used by sync and its
// file-system and SQLite implementations.
package notestore

import (
	"context"
	"strings"

	"github.com/starford/chatnotes/internal/models"
)

// ArchiveFolder is the child folder that receives archived notes.
const ArchiveFolder = "Archive"

// Store is the set of note operations sync relies on. Notes are addressed by
// a store-native id; conversations are found through the footer cursor
// embedded in note bodies.
type Store interface {
	// EnsureFolder creates folder ("Name" or "Parent/Child") when absent.
	EnsureFolder(ctx context.Context, folder string) error
	// Scan returns the state of every note in folder keyed by conversation id.
	// LastMessageID is empty for a note whose cursor cannot be read back.
	Scan(ctx context.Context, folder string) (map[string]models.NoteState, error)
	// Read returns a note body or apperr.ErrNotFound.
	Read(ctx context.Context, noteID string) (string, error)
	// Create stores a new note and returns its id.
	Create(ctx context.Context, folder, body string, attachments []models.Attachment) (string, error)
	// Delete removes a note by id.
	Delete(ctx context.Context, noteID string) error
	// Append adds fragment to the note holding conversationID. The previous
	// footer is replaced by the one carried in fragment.
	Append(ctx context.Context, folder, conversationID, fragment string) error
	// Archive moves a note into the Archive child of folder.
	Archive(ctx context.Context, noteID, folder string) error
	// List returns metadata for the notes directly inside folder, or for all
	// notes when folder is empty.
	List(ctx context.Context, folder string) ([]models.NoteMetadata, error)
}

// SearchResult is one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Folder  string `json:"folder"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Searcher is implemented by stores that support full-text search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// AttachmentReader is implemented by stores that keep note attachments
// readable after creation.
type AttachmentReader interface {
	Attachment(ctx context.Context, noteID, name string) (models.Attachment, error)
}

// ParseFolderPath splits "Parent/Child" into its parts. A flat name has an
// empty child.
func ParseFolderPath(folder string) (parent, child string) {
	parent, child, _ = strings.Cut(folder, "/")
	return parent, child
}

// ArchivePath returns the archive folder path below folder.
func ArchivePath(folder string) string {
	return strings.TrimSuffix(folder, "/") + "/" + ArchiveFolder
}

// WrapDocument wraps a body in minimal document tags for file output.
func WrapDocument(body string) string {
	return "<html><body>" + body + "</body></html>"
}

// UnwrapDocument strips the tags added by WrapDocument.
func UnwrapDocument(doc string) string {
	doc = strings.TrimSpace(doc)
	doc = strings.TrimPrefix(doc, "<html><body>")
	return strings.TrimSuffix(doc, "</body></html>")
}
