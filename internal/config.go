package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/waypoint/internal/api"
	"github.com/starford/waypoint/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	MCP     MCPConfig         `yaml:"mcp"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a copy of every log record as JSON.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
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

// StorageConfig selects the record backend and its size limits.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path is the SQLite file or the FS root directory. Unused for memory.
	Path         string `yaml:"path"`
	MaxKeySize   int    `yaml:"max_key_size"`
	MaxValueSize int    `yaml:"max_value_size"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(storage.DriverMemory, storage.DriverSQLite, storage.DriverFS)),
		validation.Field(&c.Path, validation.When(c.Driver != storage.DriverMemory, validation.Required)),
		validation.Field(&c.MaxKeySize, validation.Min(0)),
		validation.Field(&c.MaxValueSize, validation.Min(0)),
	)
}

// Limits returns the record size limits.
func (c *StorageConfig) Limits() storage.Limits {
	return storage.Limits{MaxKeySize: c.MaxKeySize, MaxValueSize: c.MaxValueSize}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how callers are identified:
//   - "disabled" (default): the X-Principal header names the caller, for local dev.
//   - "token": static bearer tokens mapped to principals; Tokens must be non-empty.
//   - "jwt": HS256 bearer JWTs whose subject is the caller; JWTSecret must be set.
type AuthConfig struct {
	Mode      string            `yaml:"mode"`
	Tokens    map[string]string `yaml:"tokens"`
	JWTSecret string            `yaml:"jwt_secret"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = api.AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(api.AuthModeDisabled, api.AuthModeToken, api.AuthModeJWT)),
	); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	switch c.Mode {
	case api.AuthModeToken:
		if len(c.Tokens) == 0 {
			return fmt.Errorf("auth: mode is %q but tokens are empty", api.AuthModeToken)
		}
		for tok, principal := range c.Tokens {
			if tok == "" || principal == "" {
				return errors.New("auth: tokens must map a non-empty token to a non-empty principal")
			}
		}
	case api.AuthModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("auth: mode is %q but jwt_secret is empty", api.AuthModeJWT)
		}
	}
	return nil
}

// AuthEnabled returns true when requests must authenticate.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == api.AuthModeToken || c.Mode == api.AuthModeJWT
}

// API returns the middleware settings for this configuration.
func (c *AuthConfig) API() api.Auth {
	return api.Auth{Mode: c.Mode, Tokens: c.Tokens, Secret: c.JWTSecret}
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	// Principal is the caller identity for every tool call.
	Principal string `yaml:"principal"`
}

// EventsConfig tunes the change event stream.
type EventsConfig struct {
	Throttle  time.Duration `yaml:"throttle"`
	Keepalive time.Duration `yaml:"keepalive"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
		validation.Field(&c.Keepalive, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return nil
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
		Storage: StorageConfig{
			Driver:       storage.DriverSQLite,
			Path:         "./waypoint.db",
			MaxKeySize:   64,
			MaxValueSize: 64 << 10,
		},
		Auth: AuthConfig{
			Mode: api.AuthModeDisabled,
		},
		MCP: MCPConfig{
			Principal: "mcp",
		},
		Events: EventsConfig{
			Throttle:  2 * time.Second,
			Keepalive: 30 * time.Second,
		},
	}
}
