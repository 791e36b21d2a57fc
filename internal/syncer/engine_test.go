package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/marker"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/render"
	"github.com/starford/chatnotes/internal/testutil"
)

const folder = "ChatGPT"

func newEngine(t *testing.T, store *testutil.MemStore, opts Options) *Engine {
	t.Helper()
	require.NoError(t, store.EnsureFolder(context.Background(), folder))
	return NewEngine(store, render.Default(), folder, opts, nil)
}

func firstPass() *models.Conversation {
	return testutil.Conversation("Two passes",
		testutil.TextMessage("m1", "user", "first question", 1),
	)
}

func secondPass() *models.Conversation {
	return testutil.Conversation("Two passes",
		testutil.TextMessage("m1", "user", "first question", 1),
		testutil.TextMessage("m2", "assistant", "second answer", 2),
	)
}

func stateOf(t *testing.T, store *testutil.MemStore) *models.NoteState {
	t.Helper()
	states, err := store.Scan(context.Background(), folder)
	require.NoError(t, err)
	st, ok := states[testutil.ConversationID]
	require.True(t, ok, "conversation not found by scan")
	return &st
}

func TestSync_CreateWhenNoNote(t *testing.T) {
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})

	out := e.Sync(context.Background(), firstPass(), nil)
	require.NoError(t, out.Err)
	assert.Equal(t, ActionCreate, out.Action)
	assert.Equal(t, "m1", out.LastMessageID)
	assert.NotEmpty(t, out.NoteID)

	notes := store.Notes()
	require.Len(t, notes, 1)
	m, ok := marker.Extract(notes[0].Body)
	require.True(t, ok)
	assert.Equal(t, marker.Marker{ConversationID: testutil.ConversationID, LastMessageID: "m1"}, m)
}

func TestSync_TwoPassesAppendOnlyNewMessage(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})

	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)
	out := e.Sync(ctx, secondPass(), stateOf(t, store))
	require.NoError(t, out.Err)
	assert.Equal(t, ActionAppend, out.Action)
	assert.Equal(t, "m2", out.LastMessageID)
	assert.Equal(t, 1, out.Messages)
	assert.Equal(t, 0, store.Calls("delete"))

	notes := store.Notes()
	require.Len(t, notes, 1)
	body := notes[0].Body
	assert.Equal(t, 1, strings.Count(body, "first question"))
	assert.Equal(t, 1, strings.Count(body, "second answer"))
	assert.Equal(t, []string{testutil.ConversationID}, marker.ConversationIDs(body))
	assert.Equal(t, "m2", stateOf(t, store).LastMessageID)
}

func TestSync_UpToDateTouchesNothing(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})

	require.NoError(t, e.Sync(ctx, secondPass(), nil).Err)
	before := store.Notes()[0].Body

	out := e.Sync(ctx, secondPass(), stateOf(t, store))
	require.NoError(t, out.Err)
	assert.Equal(t, ActionUpToDate, out.Action)
	assert.Equal(t, 0, store.Calls("append"))
	assert.Equal(t, before, store.Notes()[0].Body)
}

func TestSync_OverwriteRequested(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})
	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)
	old := stateOf(t, store)

	e = NewEngine(store, render.Default(), folder, Options{Overwrite: true}, nil)
	out := e.Sync(ctx, secondPass(), old)
	require.NoError(t, out.Err)
	assert.Equal(t, ActionOverwrite, out.Action)
	assert.Empty(t, out.Reason)
	assert.NotEqual(t, old.NoteID, out.NoteID)

	notes := store.Notes()
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Body, "second answer")
	assert.Equal(t, "m2", stateOf(t, store).LastMessageID)
}

func TestSync_AppendFailureFallsBackToOverwrite(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})
	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)

	store.Fail["append"] = errors.New("transport down")
	out := e.Sync(ctx, secondPass(), stateOf(t, store))
	require.NoError(t, out.Err)
	assert.Equal(t, ActionOverwrite, out.Action)
	assert.Contains(t, out.Reason, "transport down")
	assert.Equal(t, 1, store.Calls("delete"))

	notes := store.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, 1, strings.Count(notes[0].Body, "first question"))
}

func TestSync_UnrecoverableCursorOverwrites(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})
	id := store.Put(folder, "<div>no footer here</div>")

	out := e.Sync(ctx, secondPass(), &models.NoteState{NoteID: id, ConversationID: testutil.ConversationID})
	require.NoError(t, out.Err)
	assert.Equal(t, ActionOverwrite, out.Action)
	assert.Equal(t, "cursor not recoverable", out.Reason)
}

func TestSync_PlainConversationIDOverwrites(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})
	conv := testutil.ConversationWithID("conv-plain-id", "Plain",
		testutil.TextMessage("p1", "user", "question", 1),
	)
	require.NoError(t, e.Sync(ctx, conv, nil).Err)

	states, err := store.Scan(ctx, folder)
	require.NoError(t, err)
	st, ok := states["conv-plain-id"]
	require.True(t, ok)
	assert.Empty(t, st.LastMessageID)

	out := e.Sync(ctx, conv, &st)
	require.NoError(t, out.Err)
	assert.Equal(t, ActionOverwrite, out.Action)
	assert.Equal(t, "cursor not recoverable", out.Reason)
	assert.Len(t, store.Notes(), 1)
}

func TestSync_CursorReadBackFromBody(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})
	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)
	st := stateOf(t, store)
	st.LastMessageID = ""

	out := e.Sync(ctx, secondPass(), st)
	require.NoError(t, out.Err)
	assert.Equal(t, ActionAppend, out.Action)
	assert.Equal(t, 1, store.Calls("read"))
}

func TestSync_CursorMissingFromConversationOverwrites(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})
	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)

	rewritten := testutil.Conversation("Two passes",
		testutil.TextMessage("x1", "user", "edited question", 1),
	)
	out := e.Sync(ctx, rewritten, stateOf(t, store))
	require.NoError(t, out.Err)
	assert.Equal(t, ActionOverwrite, out.Action)
	assert.Equal(t, "cursor not in conversation", out.Reason)
	assert.NotContains(t, store.Notes()[0].Body, "first question")
}

func TestSync_CreateFailureAfterDeleteIsPartialApply(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{Overwrite: true})
	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)

	store.Fail["create"] = errors.New("disk full")
	out := e.Sync(ctx, secondPass(), stateOf(t, store))
	require.Error(t, out.Err)
	assert.True(t, out.Failed())
	assert.ErrorIs(t, out.Err, apperr.ErrPartialApply)
	assert.Contains(t, out.Err.Error(), "disk full")
}

func TestSync_DeleteFailureKeepsNote(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{Overwrite: true})
	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)

	store.Fail["delete"] = errors.New("locked")
	out := e.Sync(ctx, secondPass(), stateOf(t, store))
	require.Error(t, out.Err)
	assert.NotErrorIs(t, out.Err, apperr.ErrPartialApply)
	assert.Len(t, store.Notes(), 1)
	assert.Equal(t, 1, store.Calls("create"))
}

func TestSync_DryRunDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})
	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)
	st := stateOf(t, store)

	dry := NewEngine(store, render.Default(), folder, Options{DryRun: true}, nil)
	out := dry.Sync(ctx, secondPass(), st)
	require.NoError(t, out.Err)
	assert.True(t, out.DryRun)
	assert.Equal(t, ActionAppend, out.Action)

	out = dry.Sync(ctx, testutil.ConversationWithID("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee", "New",
		testutil.TextMessage("n1", "user", "hi", 1)), nil)
	assert.Equal(t, ActionCreate, out.Action)
	assert.Empty(t, out.NoteID)

	assert.Equal(t, 1, store.Calls("create"))
	assert.Equal(t, 0, store.Calls("append"))
	assert.Equal(t, 0, store.Calls("delete"))
}

func TestSync_MissingConversationID(t *testing.T) {
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{})
	out := e.Sync(context.Background(), testutil.ConversationWithID("", "No id"), nil)
	assert.ErrorIs(t, out.Err, ErrMissingID)
	assert.Equal(t, 0, store.Calls("create"))
}

func TestSync_CopyDirReceivesFullDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := testutil.NewMemStore()
	e := newEngine(t, store, Options{CopyDir: dir})
	require.NoError(t, e.Sync(ctx, firstPass(), nil).Err)
	require.NoError(t, e.Sync(ctx, secondPass(), stateOf(t, store)).Err)

	data, err := os.ReadFile(filepath.Join(dir, "Two_passes.html"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<html><body>"))
	assert.Contains(t, string(data), "first question")
	assert.Contains(t, string(data), "second answer")
}

func TestCopyName(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"Two passes", "Two_passes.html"},
		{"What's up? -- nothing", "Whats_up_nothing.html"},
		{"Привет мир", "Привет_мир.html"},
		{"???", testutil.ConversationID + ".html"},
	}
	for _, tt := range tests {
		got := CopyName(testutil.Conversation(tt.title))
		assert.Equal(t, tt.want, got, tt.title)
	}
}
