package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Sources   SourcesConfig     `yaml:"sources"`
	Output    OutputConfig      `yaml:"output"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Migration MigrationConfig   `yaml:"migration"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Sources.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Migration.Validate()
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

// SourcesConfig holds the path to the source-document tree.
type SourcesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the sources configuration.
func (c *SourcesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// OutputConfig holds the path to the emitted-artifact tree.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite registry configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// MigrationConfig holds migration pipeline tuning.
//
// IntroWindow is the number of leading blocks eligible for the positional
// intro rule. VerifyTolerance is the allowed non-whitespace byte discrepancy
// during content verification; 0 is strict accounting. KeepSuspect keeps a
// failing artifact directory on disk (marked SUSPECT) instead of rolling it
// back. CatalogFile and RolesFile point to optional YAML overrides of the
// built-in skill catalog and role decision table.
type MigrationConfig struct {
	IntroWindow     int    `yaml:"intro_window"`
	VerifyTolerance int    `yaml:"verify_tolerance"`
	KeepSuspect     bool   `yaml:"keep_suspect"`
	Parallelism     int    `yaml:"parallelism"`
	CatalogFile     string `yaml:"catalog_file"`
	RolesFile       string `yaml:"roles_file"`
}

// Validate validates the migration configuration.
func (c *MigrationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IntroWindow, validation.Required, validation.Min(1)),
		validation.Field(&c.VerifyTolerance, validation.Min(0)),
		validation.Field(&c.Parallelism, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Sources: SourcesConfig{
			Path: "./sources",
		},
		Output: OutputConfig{
			Path: "./agents",
		},
		SQLite: SQLiteConfig{
			Path: "./dagaz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Migration: MigrationConfig{
			IntroWindow:     3,
			VerifyTolerance: 0,
			Parallelism:     4,
		},
	}
}
