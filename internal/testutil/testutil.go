// Package testutil provides shared test helpers for building conversations,
// exports and note stores.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/notestore"
)

// TempSQLite opens a SQLite note store in a temporary directory that is
// cleaned up with the test.
func TempSQLite(t *testing.T) *notestore.SQLite {
	t.Helper()
	db, err := notestore.OpenSQLite(filepath.Join(t.TempDir(), "chatnotes-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TempFS creates a file-system note store in a temporary directory.
func TempFS(t *testing.T) (string, *notestore.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := notestore.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteExport writes convs as a conversations.json list in dir and returns
// its path.
func WriteExport(t *testing.T, dir string, convs ...*models.Conversation) string {
	t.Helper()
	records := make([]map[string]any, 0, len(convs))
	for _, c := range convs {
		records = append(records, ExportRecord(c))
	}
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, "conversations.json")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// ExportRecord converts a conversation back into the export's mapping form.
func ExportRecord(c *models.Conversation) map[string]any {
	mapping := make(map[string]any, len(c.Messages))
	for _, m := range c.Messages {
		author := map[string]any{"role": m.Author.Role}
		if m.Author.Name != "" {
			author["name"] = m.Author.Name
		}
		mapping["node-"+m.ID] = map[string]any{
			"id": "node-" + m.ID,
			"message": map[string]any{
				"id":          m.ID,
				"author":      author,
				"create_time": m.CreateTime,
				"content":     map[string]any(m.Content),
				"metadata":    m.Metadata,
			},
		}
	}
	return map[string]any{
		"id":          c.ID,
		"title":       c.Title,
		"create_time": c.CreateTime,
		"update_time": c.UpdateTime,
		"mapping":     mapping,
	}
}
