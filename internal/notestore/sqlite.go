package notestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/checksum"
	"github.com/starford/chatnotes/internal/marker"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/parser"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS folders (
	path   TEXT PRIMARY KEY,
	parent TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notes (
	id              TEXT PRIMARY KEY,
	folder          TEXT NOT NULL REFERENCES folders(path),
	title           TEXT NOT NULL DEFAULT '',
	conversation_id TEXT NOT NULL DEFAULT '',
	checksum        TEXT NOT NULL DEFAULT '',
	body            TEXT NOT NULL DEFAULT '',
	text            TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attachments (
	note_id   TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	mime_type TEXT NOT NULL DEFAULT '',
	data      BLOB NOT NULL,
	UNIQUE(note_id, name)
);

CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder);
CREATE INDEX IF NOT EXISTS idx_notes_conversation ON notes(conversation_id);
`

// SQLite stores notes in a single SQLite database. Folders are rows; the
// conversation id of each note is denormalized from its footer for lookups.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("notestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: apply fts schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// EnsureFolder inserts the folder row and, for nested paths, its parent.
func (s *SQLite) EnsureFolder(ctx context.Context, folder string) error {
	parent, child := ParseFolderPath(folder)
	if parent == "" {
		return fmt.Errorf("notestore: empty folder name")
	}
	if _, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO folders (path, parent) VALUES (?, '')`, parent); err != nil {
		return fmt.Errorf("notestore: ensure folder: %w", err)
	}
	if child == "" {
		return nil
	}
	if _, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO folders (path, parent) VALUES (?, ?)`, folder, parent); err != nil {
		return fmt.Errorf("notestore: ensure folder: %w", err)
	}
	return nil
}

// Scan recovers the cursor of every note in folder.
func (s *SQLite) Scan(ctx context.Context, folder string) (map[string]models.NoteState, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, body FROM notes WHERE folder = ? ORDER BY created_at, id`, folder)
	if err != nil {
		return nil, fmt.Errorf("notestore: scan: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.NoteState)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		m, ok := marker.Identify(body)
		if !ok {
			continue
		}
		if _, dup := out[m.ConversationID]; dup {
			continue
		}
		out[m.ConversationID] = models.NoteState{
			NoteID:         id,
			ConversationID: m.ConversationID,
			LastMessageID:  m.LastMessageID,
		}
	}
	return out, rows.Err()
}

// Read returns the body of a note.
func (s *SQLite) Read(ctx context.Context, noteID string) (string, error) {
	var body string
	err := s.conn.QueryRowContext(ctx, `SELECT body FROM notes WHERE id = ?`, noteID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("notestore: note %s: %w", noteID, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("notestore: read: %w", err)
	}
	return body, nil
}

// Create inserts a note and its attachments in one transaction.
func (s *SQLite) Create(ctx context.Context, folder, body string, attachments []models.Attachment) (string, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM folders WHERE path = ?`, folder).Scan(&exists); err != nil {
		return "", fmt.Errorf("notestore: check folder: %w", err)
	}
	if exists == 0 {
		return "", fmt.Errorf("notestore: folder %q: %w", folder, apperr.ErrNotFound)
	}

	id := uuid.NewString()
	parsed := parser.Parse(body)
	var convID string
	if m, ok := marker.Identify(body); ok {
		convID = m.ConversationID
	}
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, folder, title, conversation_id, checksum, body, text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, folder, parsed.Title, convID, checksum.Sum(body), body, parsed.Text, now, now)
	if err != nil {
		return "", fmt.Errorf("notestore: insert note: %w", err)
	}

	if len(attachments) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO attachments (note_id, name, mime_type, data) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("notestore: prepare attachment insert: %w", err)
		}
		defer stmt.Close()
		for _, a := range attachments {
			if _, err := stmt.ExecContext(ctx, id, a.Name, a.MIMEType, a.Data); err != nil {
				return "", fmt.Errorf("notestore: insert attachment: %w", err)
			}
		}
	}

	if err := ftsUpsert(tx, id, parsed.Title, parsed.Text); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("notestore: commit: %w", err)
	}
	return id, nil
}

// Delete removes a note; attachments cascade.
func (s *SQLite) Delete(ctx context.Context, noteID string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, noteID)
	if err != nil {
		return fmt.Errorf("notestore: delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notestore: note %s: %w", noteID, apperr.ErrNotFound)
	}
	ftsDelete(tx, noteID)
	return tx.Commit()
}

// Append rewrites the note holding conversationID with fragment added.
func (s *SQLite) Append(ctx context.Context, folder, conversationID, fragment string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx,
		`SELECT id, body FROM notes WHERE folder = ? AND body LIKE ? ORDER BY created_at, id`,
		folder, "%"+conversationID+"%")
	if err != nil {
		return fmt.Errorf("notestore: find note: %w", err)
	}
	var id, body string
	found := false
	for rows.Next() {
		if err := rows.Scan(&id, &body); err != nil {
			rows.Close()
			return err
		}
		if marker.Contains(body, conversationID) {
			found = true
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("notestore: append %s: %w", conversationID, apperr.ErrNotFound)
	}

	body = marker.Strip(body) + fragment
	parsed := parser.Parse(body)
	_, err = tx.ExecContext(ctx, `
		UPDATE notes SET body = ?, text = ?, title = ?, checksum = ?, updated_at = ?
		WHERE id = ?
	`, body, parsed.Text, parsed.Title, checksum.Sum(body), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("notestore: update note: %w", err)
	}
	if err := ftsUpsert(tx, id, parsed.Title, parsed.Text); err != nil {
		return err
	}
	return tx.Commit()
}

// Archive moves a note into folder/Archive.
func (s *SQLite) Archive(ctx context.Context, noteID, folder string) error {
	dst := ArchivePath(folder)
	if _, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO folders (path, parent) VALUES (?, ?)`, dst, folder); err != nil {
		return fmt.Errorf("notestore: ensure archive folder: %w", err)
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE notes SET folder = ?, updated_at = ? WHERE id = ?`, dst, time.Now().UTC(), noteID)
	if err != nil {
		return fmt.Errorf("notestore: archive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notestore: note %s: %w", noteID, apperr.ErrNotFound)
	}
	return nil
}

// List returns note metadata for folder, or every note when folder is "".
func (s *SQLite) List(ctx context.Context, folder string) ([]models.NoteMetadata, error) {
	q := `SELECT id, folder, title, conversation_id, checksum, updated_at FROM notes`
	var args []any
	if folder != "" {
		q += ` WHERE folder = ?`
		args = append(args, folder)
	}
	q += ` ORDER BY folder, created_at, id`
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("notestore: list: %w", err)
	}
	defer rows.Close()

	var out []models.NoteMetadata
	for rows.Next() {
		var m models.NoteMetadata
		if err := rows.Scan(&m.ID, &m.Folder, &m.Title, &m.ConversationID, &m.Checksum, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Attachments returns the attachments stored for a note.
func (s *SQLite) Attachments(ctx context.Context, noteID string) ([]models.Attachment, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT name, mime_type, data FROM attachments WHERE note_id = ? ORDER BY name`, noteID)
	if err != nil {
		return nil, fmt.Errorf("notestore: attachments: %w", err)
	}
	defer rows.Close()

	var out []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.Name, &a.MIMEType, &a.Data); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Attachment returns one attachment of a note.
func (s *SQLite) Attachment(ctx context.Context, noteID, name string) (models.Attachment, error) {
	a := models.Attachment{Name: name}
	err := s.conn.QueryRowContext(ctx,
		`SELECT mime_type, data FROM attachments WHERE note_id = ? AND name = ?`, noteID, name).
		Scan(&a.MIMEType, &a.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("notestore: attachment %s/%s: %w", noteID, name, apperr.ErrNotFound)
	}
	if err != nil {
		return a, fmt.Errorf("notestore: attachment: %w", err)
	}
	return a, nil
}

func likeQuery(q string) string {
	return "%" + strings.TrimSpace(q) + "%"
}

var (
	_ Store            = (*SQLite)(nil)
	_ Searcher         = (*SQLite)(nil)
	_ AttachmentReader = (*SQLite)(nil)
)
