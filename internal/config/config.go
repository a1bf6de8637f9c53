// Package config loads CLI configuration from file and environment.
//
// Precedence, highest first: environment variables, the optional canopy.yaml
// config file, built-in defaults. Folder identifiers are also read from the
// unprefixed SOURCE_FOLDER_ID / DESTINATION_FOLDER_ID variables for
// compatibility with existing job environments.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for canopy environment variables.
const EnvPrefix = "CANOPY"

// Config is the fully resolved CLI configuration.
type Config struct {
	// Source is the folder tree jobs read from.
	Source FolderConfig `mapstructure:"source"`

	// Destination is the folder clone jobs write under.
	Destination FolderConfig `mapstructure:"destination"`

	// Auth configures OAuth credential and token file locations.
	Auth AuthConfig `mapstructure:"auth"`

	// Clone configures clone job behavior.
	Clone CloneConfig `mapstructure:"clone"`

	// Logging configures the CLI logger.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server configures the serve surface.
	Server ServerConfig `mapstructure:"server"`

	// ReportDir is where report files are written and served from.
	ReportDir string `mapstructure:"report_dir"`
}

// FolderConfig identifies one drive folder.
type FolderConfig struct {
	FolderID string `mapstructure:"folder_id"`
}

// AuthConfig locates OAuth material on disk.
type AuthConfig struct {
	// CredentialsFile is the OAuth client credentials JSON.
	CredentialsFile string `mapstructure:"credentials_file"`

	// TokenFile is the cached user token JSON.
	TokenFile string `mapstructure:"token_file"`
}

// CloneConfig tunes clone job behavior.
type CloneConfig struct {
	// RateLimit is the maximum requests per second (0 = unlimited).
	RateLimit float64 `mapstructure:"rate_limit"`

	// PageSize is the listing page size (1-1000).
	PageSize int `mapstructure:"page_size"`

	// ProgressEvery emits a progress record every N copied leaves.
	ProgressEvery int `mapstructure:"progress_every"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is console or json.
	Format string `mapstructure:"format"`
}

// ServerConfig configures the serve surface.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load resolves configuration.
//
// configFile names an explicit config file; when empty, canopy.yaml in the
// working directory is used if present. A missing file is not an error;
// environment variables and defaults carry standalone use.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Folder ids double-bind to the unprefixed names used by existing
	// job environments.
	_ = v.BindEnv("source.folder_id", EnvPrefix+"_SOURCE_FOLDER_ID", "SOURCE_FOLDER_ID")
	_ = v.BindEnv("destination.folder_id", EnvPrefix+"_DESTINATION_FOLDER_ID", "DESTINATION_FOLDER_ID")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("canopy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("auth.credentials_file", "credentials.json")
	v.SetDefault("auth.token_file", "token.json")

	v.SetDefault("clone.rate_limit", 0.0)
	v.SetDefault("clone.page_size", 1000)
	v.SetDefault("clone.progress_every", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("report_dir", ".")
}

// Validate checks field ranges. Folder ids are checked by the commands that
// need them, since count and report jobs have no destination.
func (c *Config) Validate() error {
	if c.Clone.PageSize < 1 || c.Clone.PageSize > 1000 {
		return fmt.Errorf("clone.page_size must be between 1 and 1000, got %d", c.Clone.PageSize)
	}
	if c.Clone.RateLimit < 0 {
		return fmt.Errorf("clone.rate_limit must not be negative, got %g", c.Clone.RateLimit)
	}
	if c.Clone.ProgressEvery < 1 {
		return fmt.Errorf("clone.progress_every must be at least 1, got %d", c.Clone.ProgressEvery)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	return nil
}
