package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/heuristic"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "STRIPS_CONFIG"

// FileName is the config file looked up next to the executable and in the cwd.
const FileName = "stripsplan.yaml"

// Config holds the engine's runtime configuration.
type Config struct {
	DBPath             string  `yaml:"db_path"`
	ListenAddr         string  `yaml:"listen_addr"`
	LogLevel           string  `yaml:"log_level"`
	LogFormat          string  `yaml:"log_format"`
	DefaultHeuristic   string  `yaml:"default_heuristic"`
	DefaultBound       float64 `yaml:"default_bound"`
	MaxExpansions      int     `yaml:"max_expansions"`
	MaxSessions        int     `yaml:"max_sessions"`
	RateLimitPerMinute int     `yaml:"rate_limit_per_minute"`
	SessionIdleMinutes int     `yaml:"session_idle_minutes"`
}

// Load reads a YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Resolve loads the config from path, falling back to $STRIPS_CONFIG, then
// stripsplan.yaml next to the executable or in the cwd. With no file anywhere
// it returns Default.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		path = discover()
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func discover() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	return ""
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "stripsplan.db"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":9800"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.DefaultHeuristic == "" {
		c.DefaultHeuristic = heuristic.Default
	}
	if c.DefaultBound == 0 {
		c.DefaultBound = 50
	}
	if c.MaxExpansions == 0 {
		c.MaxExpansions = 1_000_000
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = 64
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.SessionIdleMinutes == 0 {
		c.SessionIdleMinutes = 30
	}
}

// SessionIdle is how long a session may sit unused before the server drops it.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c *Config) validate() error {
	var problems []string

	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("log_format %q must be text or json", c.LogFormat))
	}
	if !slices.Contains(heuristic.Names(), c.DefaultHeuristic) {
		problems = append(problems, fmt.Sprintf("default_heuristic %q is not one of %v", c.DefaultHeuristic, heuristic.Names()))
	}
	if c.DefaultBound < 0 {
		problems = append(problems, "default_bound must not be negative")
	}
	if c.MaxExpansions < 0 {
		problems = append(problems, "max_expansions must not be negative")
	}
	if c.MaxSessions < 0 {
		problems = append(problems, "max_sessions must not be negative")
	}
	if c.RateLimitPerMinute < 0 {
		problems = append(problems, "rate_limit_per_minute must not be negative")
	}
	if c.SessionIdleMinutes < 0 {
		problems = append(problems, "session_idle_minutes must not be negative")
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level %q must be debug, info, warn or error", s)
}

// NewLogger builds the process logger from the config, writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
