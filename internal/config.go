package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/photoboard/internal/workflow"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Upload  UploadConfig      `yaml:"upload"`
	Index   IndexConfig       `yaml:"index"`
	Auth    AuthConfig        `yaml:"auth"`
	Events  EventsConfig      `yaml:"events"`
	Watch   WatchConfig       `yaml:"watch"`
	MCP     MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Upload.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.MCP.Validate(); err != nil {
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
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
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

var urlPrefixRe = regexp.MustCompile(`^/[A-Za-z0-9._~/-]*$`)

// StorageConfig locates the category directories and the catalog document.
type StorageConfig struct {
	UploadsPath string `yaml:"uploads_path"`
	CatalogPath string `yaml:"catalog_path"`
	URLPrefix   string `yaml:"url_prefix"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.UploadsPath, validation.Required),
		validation.Field(&c.CatalogPath, validation.Required),
		validation.Field(&c.URLPrefix, validation.Required, validation.Match(urlPrefixRe).Error("must be an absolute URL path")),
	)
}

// UploadConfig holds upload screening and rate limiting.
type UploadConfig struct {
	MaxBytes          int64    `yaml:"max_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	RatePerSecond     float64  `yaml:"rate_per_second"`
	Burst             int      `yaml:"burst"`
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.AllowedExtensions, validation.Required),
		validation.Field(&c.RatePerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// Policy returns the screening policy.
func (c *UploadConfig) Policy() workflow.Policy {
	return workflow.Policy{MaxBytes: c.MaxBytes, AllowedExtensions: c.AllowedExtensions}
}

// IndexConfig holds the transition journal database location.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
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

// EventsConfig holds SSE settings.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// WatchConfig controls the directory watcher.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// MCPConfig controls the MCP endpoint mounted on the HTTP server. The
// running server owns the catalog, so MCP clients should use this endpoint
// rather than a separate stdio process while it is up.
type MCPConfig struct {
	HTTPEnabled bool   `yaml:"http_enabled"`
	Path        string `yaml:"path"`
}

// Validate validates the MCP configuration.
func (c *MCPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.HTTPEnabled, validation.Required, validation.Match(urlPrefixRe))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 5000,
			},
		},
		Storage: StorageConfig{
			UploadsPath: "./static/uploads",
			CatalogPath: "./photos_data.json",
			URLPrefix:   workflow.DefaultURLPrefix,
		},
		Upload: UploadConfig{
			MaxBytes:          workflow.DefaultMaxBytes,
			AllowedExtensions: append([]string(nil), workflow.DefaultExtensions...),
			RatePerSecond:     5,
			Burst:             10,
		},
		Index: IndexConfig{
			Path: "./photoboard.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 200 * time.Millisecond,
		},
		MCP: MCPConfig{
			HTTPEnabled: true,
			Path:        "/mcp",
		},
	}
}
