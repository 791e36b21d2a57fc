package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chatnotes/internal/notestore"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Destination backends.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Sync        SyncConfig        `yaml:"sync"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Destination.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// NewLogger builds the process logger writing to w.
func (c *ApplicationConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// SyncRPS limits POST /api/sync; zero disables the limit.
	SyncRPS   float64 `yaml:"sync_rps"`
	SyncBurst int     `yaml:"sync_burst"`
	Metrics   bool    `yaml:"metrics"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.SyncRPS, validation.Min(0.0)),
		validation.Field(&c.SyncBurst, validation.Min(0)),
	)
}

// SourceConfig names the ChatGPT export: a conversations.json file, a
// directory of .json files or the export .zip.
type SourceConfig struct {
	Path string `yaml:"path"`
}

// DestinationConfig selects the note store.
type DestinationConfig struct {
	Backend string `yaml:"backend"`
	// Path is the notes root directory (fs) or the database file (sqlite).
	Path string `yaml:"path"`
	// Folder is the note folder, optionally "Parent/Child".
	Folder string `yaml:"folder"`
}

// Validate validates the destination configuration.
func (c *DestinationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFS, BackendSQLite)),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Folder, validation.Required, validation.By(folderPath)),
	)
}

// folderPath accepts "Folder" and "Parent/Child".
func folderPath(v any) error {
	parent, child := notestore.ParseFolderPath(v.(string))
	if parent == "" || strings.Contains(child, "/") || strings.HasSuffix(v.(string), "/") {
		return errors.New("must be a folder name or Parent/Child")
	}
	return nil
}

// OpenStore opens the configured note store. The returned close function
// is never nil.
func (c *DestinationConfig) OpenStore() (notestore.Store, func() error, error) {
	switch c.Backend {
	case BackendSQLite:
		db, err := notestore.OpenSQLite(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case BackendFS:
		fs, err := notestore.NewFS(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("destination: unknown backend %q", c.Backend)
}

// SyncConfig holds sync behaviour.
type SyncConfig struct {
	Overwrite       bool          `yaml:"overwrite"`
	ArchiveDeleted  bool          `yaml:"archive_deleted"`
	RenderInternals bool          `yaml:"render_internals"`
	CopyDir         string        `yaml:"copy_dir"`
	Watch           bool          `yaml:"watch"`
	Debounce        time.Duration `yaml:"debounce"`
	// DryRun is only settable from the command line.
	DryRun bool `yaml:"-"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	if c.Debounce < 0 {
		return errors.New("sync: debounce must not be negative")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			HTTP: HTTPConfig{
				Port:      8080,
				SyncRPS:   0.2,
				SyncBurst: 2,
				Metrics:   true,
			},
		},
		Destination: DestinationConfig{
			Backend: BackendFS,
			Path:    "./notes",
			Folder:  "ChatGPT",
		},
		Sync: SyncConfig{
			Debounce: 500 * time.Millisecond,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
