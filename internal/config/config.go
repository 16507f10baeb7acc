// Package config loads the server configuration.
//
// SOURCES (later wins):
//  1. Defaults set in Load
//  2. An optional club.yaml in the working directory or /etc/owners-club
//     (or the file named by CLUB_CONFIG or clubctl --config)
//  3. Environment variables prefixed CLUB_, e.g. CLUB_PORT=9000,
//     CLUB_JWT_SECRET=..., CLUB_GITHUB_CLIENT_ID=...
//
// viper does the merging; Config is the typed result the rest of the app
// sees, so nothing else imports viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`

	DBPath      string `mapstructure:"db_path"`
	TemplateDir string `mapstructure:"template_dir"`
	StaticDir   string `mapstructure:"static_dir"`
	UploadDir   string `mapstructure:"upload_dir"`

	LogLevel string `mapstructure:"log_level"`

	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	// CSRFKey is the 32-byte key gorilla/csrf signs its tokens with.
	CSRFKey string `mapstructure:"csrf_key"`
	// SecureCookies marks cookies Secure. Turn off only for plain-HTTP dev.
	SecureCookies bool `mapstructure:"secure_cookies"`

	GitHubClientID     string `mapstructure:"github_client_id"`
	GitHubClientSecret string `mapstructure:"github_client_secret"`
	GitHubCallbackURL  string `mapstructure:"github_callback_url"`

	// BadgeSessionTTL is how long an idle admin badge edit stays open.
	BadgeSessionTTL time.Duration `mapstructure:"badge_session_ttl"`
	// MaxUploadBytes caps a single image upload.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// Load reads the configuration. configFile may be "" to use the default
// search path.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("base_url", "")
	v.SetDefault("db_path", "data/club.db")
	v.SetDefault("template_dir", "web/templates")
	v.SetDefault("static_dir", "web/static")
	v.SetDefault("upload_dir", "data/uploads")
	v.SetDefault("log_level", "info")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("session_ttl", 7*24*time.Hour)
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("csrf_key", "")
	v.SetDefault("secure_cookies", true)
	v.SetDefault("github_client_id", "")
	v.SetDefault("github_client_secret", "")
	v.SetDefault("github_callback_url", "")
	v.SetDefault("badge_session_ttl", 30*time.Minute)
	v.SetDefault("max_upload_bytes", 5<<20)

	v.SetEnvPrefix("CLUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("club")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/owners-club")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = strings.TrimRight(cfg.BaseURL, "/") + "/auth/github/callback"
	}
	for _, p := range []*string{&cfg.TemplateDir, &cfg.StaticDir, &cfg.UploadDir} {
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}

	return &cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("config: jwt_secret must be at least 16 characters (set CLUB_JWT_SECRET)")
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return errors.New("config: csrf_key must be exactly 32 bytes")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: max_upload_bytes must be positive")
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		return errors.New("config: github_client_id and github_client_secret must be set together")
	}
	return nil
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// SlogLevel maps LogLevel onto a slog.Level. Unknown values mean Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
