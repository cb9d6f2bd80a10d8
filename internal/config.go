package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dysedit/internal/session"
	"github.com/starford/dysedit/internal/speech"
	"github.com/starford/dysedit/internal/surface"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Editor    EditorConfig      `yaml:"editor"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Editor.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig holds the directory where document packages are saved.
type WorkspaceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the SQLite database paths. Assets holds image payloads
// and local editor state; Path holds the workspace catalog.
type SQLiteConfig struct {
	Path   string `yaml:"path"`
	Assets string `yaml:"assets"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Assets, validation.Required),
	)
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

// EditorConfig holds the editor tunables.
type EditorConfig struct {
	MaxImageHeight    int           `yaml:"max_image_height"`
	ClearFormatWindow time.Duration `yaml:"clear_format_window"`
	PushPolicy        string        `yaml:"push_policy"`
	ResyncWindow      int           `yaml:"resync_window"`
	TrailDuration     time.Duration `yaml:"trail_duration"`
	MaxAssetBytes     int64         `yaml:"max_asset_bytes"`
	Grid              GridConfig    `yaml:"grid"`
}

// GridConfig sizes the fixed grid used to place speech highlights.
type GridConfig struct {
	CellWidth  float64 `yaml:"cell_width"`
	LineHeight float64 `yaml:"line_height"`
	Columns    int     `yaml:"columns"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxImageHeight, validation.Required, validation.Min(1)),
		validation.Field(&c.ClearFormatWindow, validation.Min(time.Duration(0))),
		validation.Field(&c.PushPolicy, validation.Required,
			validation.In(string(surface.PushReplay), string(surface.PushDrop))),
		validation.Field(&c.ResyncWindow, validation.Min(0)),
		validation.Field(&c.TrailDuration, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxAssetBytes, validation.Required, validation.Min(int64(1))),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.Grid,
		validation.Field(&c.Grid.CellWidth, validation.Required, validation.Min(0.1)),
		validation.Field(&c.Grid.LineHeight, validation.Required, validation.Min(0.1)),
		validation.Field(&c.Grid.Columns, validation.Min(0)),
	)
}

// Session converts the editor section to session tunables.
func (c *EditorConfig) Session() session.Config {
	return session.Config{
		PushPolicy:        surface.PushPolicy(c.PushPolicy),
		MaxImageHeight:    c.MaxImageHeight,
		ClearFormatWindow: c.ClearFormatWindow,
		ResyncWindow:      c.ResyncWindow,
		TrailDuration:     c.TrailDuration,
		MaxAssetBytes:     c.MaxAssetBytes,
		Layout: speech.GridLayout{
			CellWidth:  c.Grid.CellWidth,
			LineHeight: c.Grid.LineHeight,
			Columns:    c.Grid.Columns,
		},
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	editor := session.DefaultConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Path: "./documents",
		},
		SQLite: SQLiteConfig{
			Path:   "./dysedit.db",
			Assets: "./dysedit-assets.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			MaxImageHeight:    editor.MaxImageHeight,
			ClearFormatWindow: editor.ClearFormatWindow,
			PushPolicy:        string(editor.PushPolicy),
			ResyncWindow:      editor.ResyncWindow,
			TrailDuration:     editor.TrailDuration,
			MaxAssetBytes:     editor.MaxAssetBytes,
			Grid: GridConfig{
				CellWidth:  speech.DefaultGrid.CellWidth,
				LineHeight: speech.DefaultGrid.LineHeight,
				Columns:    speech.DefaultGrid.Columns,
			},
		},
	}
}
