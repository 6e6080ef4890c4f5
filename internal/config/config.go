// Package config loads application configuration from defaults, an optional
// config file and FASTAPIFY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. FASTAPIFY_SERVER_PORT.
const EnvPrefix = "FASTAPIFY"

// configFileNames are searched in order when no explicit path is given.
var configFileNames = []string{
	"fastapify.yaml",
	"fastapify.json",
	".fastapify.yaml",
	".fastapify.json",
}

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Docs   DocsConfig   `mapstructure:"docs" validate:"required"`
	Auth   AuthConfig   `mapstructure:"auth" validate:"required"`
	CORS   CORSConfig   `mapstructure:"cors"`
	Mail   MailConfig   `mapstructure:"mail"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	URL             string        `mapstructure:"url" validate:"required"`
	LogLevel        string        `mapstructure:"log_level" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DocsConfig contains documentation settings.
type DocsConfig struct {
	Route       string   `mapstructure:"route" validate:"required,startswith=/"`
	Title       string   `mapstructure:"title"`
	Version     string   `mapstructure:"version"`
	Description string   `mapstructure:"description"`
	UI          string   `mapstructure:"ui" validate:"oneof=swagger rapidoc redoc"`
	Exclude     []string `mapstructure:"exclude"`
}

// AuthConfig contains token and one-time password settings. Empty secrets
// are replaced by random ones at startup.
type AuthConfig struct {
	AccessSecret  string        `mapstructure:"access_secret" validate:"omitempty,min=32"`
	RefreshSecret string        `mapstructure:"refresh_secret" validate:"omitempty,min=32"`
	AccessTTL     time.Duration `mapstructure:"access_ttl" validate:"gt=0"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl" validate:"gt=0"`
	OTPTTL        time.Duration `mapstructure:"otp_ttl" validate:"gt=0"`
}

// CORSConfig contains cross-origin settings.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedDomains   []string `mapstructure:"allowed_domains"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// MailConfig contains outgoing mail settings.
type MailConfig struct {
	From string `mapstructure:"from" validate:"omitempty,email"`
}

// Load reads the configuration. An explicit configPath must exist; without
// one the first file of configFileNames found in the working directory is
// used, if any.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		for _, name := range configFileNames {
			if _, err := os.Stat(name); err == nil {
				configPath = name
				break
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.url", "localhost")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("docs.route", "/docs")
	v.SetDefault("docs.title", "")
	v.SetDefault("docs.version", "")
	v.SetDefault("docs.description", "")
	v.SetDefault("docs.ui", "swagger")
	v.SetDefault("docs.exclude", []string{})

	v.SetDefault("auth.access_secret", "")
	v.SetDefault("auth.refresh_secret", "")
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.otp_ttl", 5*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.allowed_domains", []string{})
	v.SetDefault("cors.allow_credentials", true)

	v.SetDefault("mail.from", "")
}
