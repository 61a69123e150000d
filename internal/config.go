package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"

	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/storyservice"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration. YAML values may be
// overridden by the SAGA_* environment variables named in the env tags.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Entities EntitiesConfig    `yaml:"entities"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Entities.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"SAGA_LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"SAGA_HTTP_PORT"`
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

// VaultConfig holds the path to the story vault directory.
type VaultConfig struct {
	Path string `yaml:"path" env:"SAGA_VAULT_PATH"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SAGA_SQLITE_PATH"`
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
	Mode  string `yaml:"mode" env:"SAGA_AUTH_MODE"`
	Token string `yaml:"token" env:"SAGA_AUTH_TOKEN"`
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

// EntitiesConfig controls how entity documents are read and written.
//
// CustomFieldsMode is "flatten" (custom keys at the top level) or "nested"
// (custom keys under customFields). Locale is a BCP 47 tag for month names
// and display strings. Timezone is an IANA name used for dates without an
// offset. ForwardDates resolves bare weekdays to their next occurrence.
type EntitiesConfig struct {
	CustomFieldsMode string `yaml:"custom_fields_mode" env:"SAGA_CUSTOM_FIELDS_MODE"`
	Locale           string `yaml:"locale" env:"SAGA_LOCALE"`
	Timezone         string `yaml:"timezone" env:"SAGA_TIMEZONE"`
	ForwardDates     bool   `yaml:"forward_dates" env:"SAGA_FORWARD_DATES"`
}

// Validate validates the entities configuration.
func (c *EntitiesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CustomFieldsMode, validation.In(string(entity.Flatten), string(entity.Nested))),
		validation.Field(&c.Locale, validation.By(func(v any) error {
			if s, _ := v.(string); s != "" {
				if _, err := language.Parse(s); err != nil {
					return fmt.Errorf("invalid locale %q", s)
				}
			}
			return nil
		})),
		validation.Field(&c.Timezone, validation.By(func(v any) error {
			if s, _ := v.(string); s != "" {
				if _, err := time.LoadLocation(s); err != nil {
					return fmt.Errorf("unknown timezone %q", s)
				}
			}
			return nil
		})),
	)
}

// ServiceConfig converts the section into entity service settings.
func (c *EntitiesConfig) ServiceConfig() (storyservice.Config, error) {
	mode, err := entity.ParseCustomFieldsMode(c.CustomFieldsMode)
	if err != nil {
		return storyservice.Config{}, err
	}
	loc := time.UTC
	if c.Timezone != "" {
		if loc, err = time.LoadLocation(c.Timezone); err != nil {
			return storyservice.Config{}, fmt.Errorf("load timezone: %w", err)
		}
	}
	return storyservice.Config{
		Mode:        mode,
		Locale:      c.Locale,
		Location:    loc,
		ForwardDate: c.ForwardDates,
	}, nil
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
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./saga.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Entities: EntitiesConfig{
			CustomFieldsMode: string(entity.Flatten),
			Locale:           "en-US",
			Timezone:         "UTC",
		},
	}
}
