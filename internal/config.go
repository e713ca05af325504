package internal

import (
	"fmt"
	"log/slog"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mkarlsen/keepsake/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig     `yaml:"app"`
	SQLite  SQLiteConfig          `yaml:"sqlite"`
	Auth    AuthConfig            `yaml:"auth"`
	Remote  models.RemoteSettings `yaml:"remote"`
	Caption CaptionConfig         `yaml:"caption"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// Address returns the HTTP server listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// CallbackURL returns the OAuth redirect target for this server.
func (c *HTTPConfig) CallbackURL() string {
	return fmt.Sprintf("http://localhost:%d/api/auth/callback", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds API authentication configuration. This guards the local
// REST surface and is independent of the Google sign-in gate.
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
	// Normalise empty mode to "disabled".
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

// CaptionConfig holds the optional AI caption suggestion settings. An empty
// APIKey (with no OPENAI_API_KEY in the environment) disables the feature.
type CaptionConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// NewDefaultConfig returns a new Config with sensible default values. Remote
// settings pre-seed from KEEPSAKE_* environment variables so the mirror works
// in a zero-config run; a config file or the settings API overrides them.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./keepsake.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Remote: models.RemoteSettings{
			ClientID:      os.Getenv("KEEPSAKE_CLIENT_ID"),
			ClientSecret:  os.Getenv("KEEPSAKE_CLIENT_SECRET"),
			APIKey:        os.Getenv("KEEPSAKE_API_KEY"),
			SpreadsheetID: os.Getenv("KEEPSAKE_SPREADSHEET_ID"),
			FolderID:      os.Getenv("KEEPSAKE_FOLDER_ID"),
		},
		Caption: CaptionConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
		},
	}
}
