package internal

import (
	"log/slog"

	"github.com/starford/chatnotes/internal/notestore"
	"github.com/starford/chatnotes/internal/syncer"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	logger   *slog.Logger
	reporter syncer.Reporter
	version  string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger sets the logger instead of building one from the config.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithReporter sets the progress reporter used by sync batches.
func WithReporter(r syncer.Reporter) Option {
	return func(a *application) {
		a.reporter = r
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}

func (a *application) batch(store notestore.Store, extra ...syncer.BatchOption) *syncer.Batch {
	cfg := a.config
	opts := []syncer.BatchOption{syncer.WithLogger(a.logger), syncer.WithReporter(a.reporter)}
	opts = append(opts, extra...)
	return syncer.NewBatch(store, newRenderer(cfg), syncer.Config{
		Source:         cfg.Source.Path,
		Folder:         cfg.Destination.Folder,
		ArchiveDeleted: cfg.Sync.ArchiveDeleted,
		Options: syncer.Options{
			Overwrite: cfg.Sync.Overwrite,
			DryRun:    cfg.Sync.DryRun,
			CopyDir:   cfg.Sync.CopyDir,
		},
	}, opts...)
}
