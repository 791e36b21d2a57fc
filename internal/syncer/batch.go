package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/archive"
	"github.com/starford/chatnotes/internal/marker"
	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/notestore"
	"github.com/starford/chatnotes/internal/render"
)

// Status is the batch-level result.
type Status int

const (
	StatusOK Status = iota
	StatusPartial
	StatusFatal
)

// ExitCode maps a status to the process exit code.
func (s Status) ExitCode() int { return int(s) }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPartial:
		return "partial"
	}
	return "fatal"
}

// Summary aggregates a batch.
type Summary struct {
	Status      Status
	Synced      int
	Failed      int
	Archived    int
	Created     int
	Appended    int
	Overwritten int
	UpToDate    int
	Outcomes    []Outcome
	Failures    []archive.Failure
}

func (s *Summary) record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Failed() {
		s.Failed++
		return
	}
	s.Synced++
	switch o.Action {
	case ActionCreate:
		s.Created++
	case ActionAppend:
		s.Appended++
	case ActionOverwrite:
		s.Overwritten++
	case ActionUpToDate:
		s.UpToDate++
	}
}

// Reporter receives batch progress.
type Reporter interface {
	Start(total int)
	Advance(label string)
	Finish()
}

type nopReporter struct{}

func (nopReporter) Start(int)      {}
func (nopReporter) Advance(string) {}
func (nopReporter) Finish()        {}

// Observer is told about every note change a batch makes.
type Observer interface {
	NoteSynced(folder string, o Outcome)
	NoteArchived(folder, conversationID, noteID string)
	BatchCompleted(folder string, s Summary)
}

// Config describes one batch.
type Config struct {
	// Source is a .json file, a directory of .json files or a .zip export.
	Source string
	// Folder is the destination folder, optionally "Parent/Child".
	Folder string
	// ArchiveDeleted moves notes whose conversation is absent from the
	// source into the Archive child folder.
	ArchiveDeleted bool
	Options
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) BatchOption {
	return func(b *Batch) {
		if r != nil {
			b.reporter = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BatchOption {
	return func(b *Batch) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithObserver registers a change observer.
func WithObserver(o Observer) BatchOption {
	return func(b *Batch) { b.observers = append(b.observers, o) }
}

// Batch syncs every conversation of a source into a folder.
type Batch struct {
	store     notestore.Store
	renderer  *render.Renderer
	cfg       Config
	reporter  Reporter
	logger    *slog.Logger
	observers []Observer
}

// NewBatch returns a Batch for cfg.
func NewBatch(store notestore.Store, renderer *render.Renderer, cfg Config, opts ...BatchOption) *Batch {
	b := &Batch{
		store:    store,
		renderer: renderer,
		cfg:      cfg,
		reporter: nopReporter{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run executes the batch. The returned error is non-nil only for fatal
// conditions and context cancellation; per-conversation failures are
// counted in the summary.
func (b *Batch) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	log := b.logger.With(slog.String("folder", b.cfg.Folder))

	set, err := archive.Discover(b.cfg.Source)
	if err != nil {
		return b.fatal(sum, err)
	}
	defer set.Close()

	if !b.cfg.DryRun {
		if err := b.store.EnsureFolder(ctx, b.cfg.Folder); err != nil {
			return b.fatal(sum, fmt.Errorf("%w: ensure folder %q: %v", apperr.ErrFatal, b.cfg.Folder, err))
		}
	}
	snapshot, err := b.store.Scan(ctx, b.cfg.Folder)
	if err != nil {
		return b.fatal(sum, fmt.Errorf("%w: scan folder %q: %v", apperr.ErrFatal, b.cfg.Folder, err))
	}
	log.Debug("sync: scanned folder", slog.Int("notes", len(snapshot)))

	entries, failures := archive.BuildIndex(set.Sources)
	for _, f := range failures {
		log.Error("sync: source failed", slog.String("source", f.Source), slog.String("error", f.Err.Error()))
		sum.Failures = append(sum.Failures, f)
		sum.Failed++
	}

	engine := NewEngine(b.store, b.renderer, b.cfg.Folder, b.cfg.Options, log)
	seen := make(map[string]struct{}, len(entries))
	b.reporter.Start(len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			b.reporter.Finish()
			sum.Status = StatusPartial
			return sum, err
		}
		conv := e.Conversation
		seen[conv.ID] = struct{}{}

		var existing *models.NoteState
		if st, ok := snapshot[conv.ID]; ok {
			existing = &st
		}
		o := engine.Sync(ctx, conv, existing)
		if !o.Failed() {
			// a repeated id later in the source must see this note
			st := models.NoteState{NoteID: o.NoteID, ConversationID: conv.ID}
			if marker.Recoverable(conv.ID, o.LastMessageID) {
				st.LastMessageID = o.LastMessageID
			}
			snapshot[conv.ID] = st
		}
		sum.record(o)
		b.report(log, e, o)
		b.reporter.Advance(conv.Title)
	}
	b.reporter.Finish()

	if b.cfg.ArchiveDeleted {
		b.archiveUnseen(ctx, log, snapshot, seen, &sum)
	}

	sum.Status = StatusOK
	if sum.Failed > 0 {
		sum.Status = StatusPartial
	}
	log.Info("sync: done",
		slog.Int("synced", sum.Synced),
		slog.Int("failed", sum.Failed),
		slog.Int("archived", sum.Archived),
		slog.Int("created", sum.Created),
		slog.Int("appended", sum.Appended),
		slog.Int("overwritten", sum.Overwritten),
		slog.Int("up_to_date", sum.UpToDate),
		slog.Bool("dry_run", b.cfg.DryRun))
	for _, obs := range b.observers {
		obs.BatchCompleted(b.cfg.Folder, sum)
	}
	return sum, nil
}

func (b *Batch) report(log *slog.Logger, e archive.Entry, o Outcome) {
	if o.Failed() {
		log.Error("sync: conversation failed",
			slog.String("conversation", o.ConversationID),
			slog.String("title", o.Title),
			slog.String("source", e.Source),
			slog.String("error", o.Err.Error()))
		return
	}
	attrs := []any{
		slog.String("conversation", o.ConversationID),
		slog.String("title", o.Title),
		slog.String("action", o.Action.String()),
		slog.Int("messages", o.Messages),
	}
	if o.Reason != "" {
		attrs = append(attrs, slog.String("reason", o.Reason))
	}
	log.Info("sync: conversation synced", attrs...)
	if o.DryRun || o.Action == ActionUpToDate {
		return
	}
	for _, obs := range b.observers {
		obs.NoteSynced(b.cfg.Folder, o)
	}
}

// archiveUnseen moves notes whose conversation was not seen in the source.
// It is skipped when a source could not be decoded, since its conversations
// are unknown.
func (b *Batch) archiveUnseen(ctx context.Context, log *slog.Logger, snapshot map[string]models.NoteState, seen map[string]struct{}, sum *Summary) {
	if len(sum.Failures) > 0 {
		log.Warn("sync: archive skipped, some sources failed", slog.Int("sources", len(sum.Failures)))
		return
	}
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := snapshot[id]
		if b.cfg.DryRun {
			log.Info("sync: would archive", slog.String("conversation", id), slog.String("note", st.NoteID))
			sum.Archived++
			continue
		}
		if err := b.store.Archive(ctx, st.NoteID, b.cfg.Folder); err != nil {
			log.Error("sync: archive failed",
				slog.String("conversation", id),
				slog.String("note", st.NoteID),
				slog.String("error", err.Error()))
			sum.Failed++
			continue
		}
		sum.Archived++
		log.Info("sync: archived", slog.String("conversation", id), slog.String("note", st.NoteID))
		for _, obs := range b.observers {
			obs.NoteArchived(b.cfg.Folder, id, st.NoteID)
		}
	}
}

func (b *Batch) fatal(sum Summary, err error) (Summary, error) {
	if !errors.Is(err, apperr.ErrFatal) {
		err = fmt.Errorf("%w: %v", apperr.ErrFatal, err)
	}
	b.logger.Error("sync: fatal", slog.String("error", err.Error()))
	sum.Status = StatusFatal
	return sum, err
}
