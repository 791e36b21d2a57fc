package notestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/chatnotes/internal/models"
)

func testDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "chatnotes-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_SchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"folders", "notes", "attachments"} {
		var count int
		err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count)
		assert.NoError(t, err, table)
	}
}

func TestSQLite_EnsureFolderCreatesParent(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	require.NoError(t, db.EnsureFolder(ctx, "Work/ChatGPT"))
	require.NoError(t, db.EnsureFolder(ctx, "Work/ChatGPT"))

	var parent string
	require.NoError(t, db.conn.QueryRow(`SELECT parent FROM folders WHERE path = ?`, "Work/ChatGPT").Scan(&parent))
	assert.Equal(t, "Work", parent)

	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM folders`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSQLite_AttachmentsCascadeOnDelete(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	require.NoError(t, db.EnsureFolder(ctx, "ChatGPT"))
	id, err := db.Create(ctx, "ChatGPT", noteBody("T", convA, "m1"), []models.Attachment{
		{Name: "image-1.png", MIMEType: "image/png", Data: []byte("a")},
		{Name: "image-2.png", MIMEType: "image/png", Data: []byte("b")},
	})
	require.NoError(t, err)

	atts, err := db.Attachments(ctx, id)
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "image-1.png", atts[0].Name)

	require.NoError(t, db.Delete(ctx, id))
	atts, err = db.Attachments(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, atts)
}

func TestSQLite_ChecksumChangesOnAppend(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	require.NoError(t, db.EnsureFolder(ctx, "ChatGPT"))
	_, err := db.Create(ctx, "ChatGPT", noteBody("T", convA, "m1"), nil)
	require.NoError(t, err)

	before, err := db.List(ctx, "ChatGPT")
	require.NoError(t, err)
	require.NoError(t, db.Append(ctx, "ChatGPT", convA, "<div>more</div>"))
	after, err := db.List(ctx, "ChatGPT")
	require.NoError(t, err)

	assert.NotEqual(t, before[0].Checksum, after[0].Checksum)
}
