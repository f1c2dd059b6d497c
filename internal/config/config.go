package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/vitrine/internal/logger"
	"github.com/five82/vitrine/internal/query"
)

// Config holds everything vitrine reads at startup.
type Config struct {
	APIURL          string
	PageSize        int
	RequestTimeout  time.Duration
	RateLimit       float64
	RateBurst       int
	RefreshInterval time.Duration
	LogFile         string
	LogLevel        string
}

const (
	defaultConfigPath     = "~/.config/vitrine/config.toml"
	defaultAPIURL         = "http://127.0.0.1:8000"
	defaultRequestTimeout = 5 * time.Second
	defaultRateLimit      = 10
	defaultRateBurst      = 5
	defaultLogFile        = "~/.local/state/vitrine/vitrine.log"
	defaultLogLevel       = "info"

	// EnvAPIURL overrides api_url.
	EnvAPIURL = "VITRINE_API_URL"
	// EnvLogLevel overrides log_level.
	EnvLogLevel = "VITRINE_LOG_LEVEL"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		PageSize:       query.DefaultPageSize,
		RequestTimeout: defaultRequestTimeout,
		RateLimit:      defaultRateLimit,
		RateBurst:      defaultRateBurst,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
	}
}

type fileConfig struct {
	APIURL          string   `toml:"api_url"`
	PageSize        *int     `toml:"page_size"`
	RequestTimeout  string   `toml:"request_timeout"`
	RateLimit       *float64 `toml:"rate_limit"`
	RateBurst       *int     `toml:"rate_burst"`
	RefreshInterval string   `toml:"refresh_interval"`
	LogFile         string   `toml:"log_file"`
	LogLevel        string   `toml:"log_level"`
}

// Load reads the config at path (or the default location), applies
// environment overrides and validates the result. A missing file is not an
// error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	bytes, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if bytes != nil {
		var raw fileConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.merge(raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return bytes, nil
}

func (c *Config) merge(raw fileConfig) error {
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		c.APIURL = v
	}
	if raw.PageSize != nil {
		c.PageSize = clamp(*raw.PageSize, 1, query.MaxPageSize)
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	if raw.RateLimit != nil {
		c.RateLimit = *raw.RateLimit
	}
	if raw.RateBurst != nil {
		c.RateBurst = *raw.RateBurst
	}
	if v := strings.TrimSpace(raw.RefreshInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("refresh_interval: %w", err)
		}
		c.RefreshInterval = d
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q must be an http(s) URL", c.APIURL)
	}
	if c.PageSize < 1 || c.PageSize > query.MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d", query.MaxPageSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.RateBurst < 0 {
		return fmt.Errorf("rate_burst must not be negative")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must not be negative")
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
