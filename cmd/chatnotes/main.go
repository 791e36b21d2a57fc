package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/chatnotes/internal"
	"github.com/starford/chatnotes/internal/progress"
	pkgconfig "github.com/starford/chatnotes/pkg/config"
)

var version = "dev"

// loadConfig reads the optional config file and applies the shared flags.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("backend") {
		cfg.Destination.Backend = cmd.String("backend")
	}
	if cmd.IsSet("dest") {
		cfg.Destination.Path = cmd.String("dest")
	}
	if cmd.IsSet("folder") {
		cfg.Destination.Folder = cmd.String("folder")
	}
	if cmd.IsSet("source") {
		cfg.Source.Path = cmd.String("source")
	}
	if cmd.Bool("verbose") {
		cfg.App.LogLevel = slog.LevelDebug
	}
	return cfg, nil
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 || cmd.Args().Len() > 2 {
		return errors.New("usage: chatnotes sync SOURCE [FOLDER]")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Source.Path = cmd.Args().Get(0)
	if folder := cmd.Args().Get(1); folder != "" {
		cfg.Destination.Folder = folder
	}
	if cmd.IsSet("overwrite") {
		cfg.Sync.Overwrite = cmd.Bool("overwrite")
	}
	if cmd.IsSet("archive-deleted") {
		cfg.Sync.ArchiveDeleted = cmd.Bool("archive-deleted")
	}
	if cmd.IsSet("render-internals") {
		cfg.Sync.RenderInternals = cmd.Bool("render-internals")
	}
	if cmd.IsSet("copy-dir") {
		cfg.Sync.CopyDir = cmd.String("copy-dir")
	}
	if cmd.IsSet("watch") {
		cfg.Sync.Watch = cmd.Bool("watch")
	}
	cfg.Sync.DryRun = cmd.Bool("dry-run")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.App.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	sum, err := internal.Sync(ctx,
		internal.WithConfig(cfg),
		internal.WithLogger(logger),
		internal.WithReporter(progress.New(cmd.Bool("quiet") || cmd.Bool("verbose"))),
	)
	exitCode = sum.Status.ExitCode()
	if err != nil {
		// Already logged by the batch.
		return nil
	}
	fmt.Fprintf(os.Stdout, "%s: %d synced, %d failed, %d archived\n", sum.Status, sum.Synced, sum.Failed, sum.Archived)
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("watch") {
		cfg.Sync.Watch = cmd.Bool("watch")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

// exitCode is set by the sync command from the batch status.
var exitCode int

// storeFlags returns fresh instances of the flags shared by every command.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Note store backend: fs or sqlite",
		},
		&cli.StringFlag{
			Name:  "dest",
			Usage: "Notes directory (fs) or database file (sqlite)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "chatnotes",
		Usage:   "Sync ChatGPT conversation exports into notes",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Import conversations from an export into a note folder",
				ArgsUsage: "SOURCE [FOLDER]",
				Action:    runSync,
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "overwrite", Usage: "Rewrite every note instead of appending"},
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Report what would change without writing"},
					&cli.BoolFlag{Name: "archive-deleted", Usage: "Move notes whose conversation left the export to the Archive folder"},
					&cli.BoolFlag{Name: "render-internals", Usage: "Render tool calls, reasoning and other internal content"},
					&cli.StringFlag{Name: "copy-dir", Usage: "Also write each synced conversation as an HTML file here"},
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Keep running and re-sync when the source changes"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Hide the progress bar"},
				}, storeFlags()...),
			},
			{
				Name:   "serve",
				Usage:  "Serve notes over HTTP with server-sent events",
				Action: runServe,
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "source", Usage: "Export to import on start and on POST /api/sync"},
					&cli.StringFlag{Name: "folder", Usage: "Note folder, optionally Parent/Child"},
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Re-sync when the source changes"},
				}, storeFlags()...),
			},
			{
				Name:   "mcp",
				Usage:  "Serve notes to LLM clients over MCP stdio",
				Action: runMCP,
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "source", Usage: "Export used by the sync_now tool"},
					&cli.StringFlag{Name: "folder", Usage: "Note folder, optionally Parent/Child"},
				}, storeFlags()...),
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Run(ctx, os.Args)
	stop()
	if err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(2)
	}
	os.Exit(exitCode)
}
