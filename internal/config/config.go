package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHome     = "~/.quaderno"
	DefaultDebounce = 500 * time.Millisecond
	DefaultRefresh  = 30 * time.Second
	DefaultModel    = "haiku"
	DefaultLogLevel = "info"
	FileName        = "config.yaml"
)

// Config holds the settings shared by every binary. Values come from
// defaults, then $QUADERNO_HOME/config.yaml, then QUADERNO_* env vars.
type Config struct {
	Home        string        `yaml:"-"`
	Database    string        `yaml:"database"`
	User        string        `yaml:"user"`
	QueueDir    string        `yaml:"queue_dir"`
	MirrorDir   string        `yaml:"mirror_dir"`
	Debounce    time.Duration `yaml:"debounce"`
	Refresh     time.Duration `yaml:"refresh"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
	ClaudeModel string        `yaml:"claude_model"`
	Editor      string        `yaml:"editor"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// Default returns the configuration used when nothing is set
func Default(home string) Config {
	return Config{
		Home:        home,
		Database:    filepath.Join(home, "pages.db"),
		User:        currentUser(),
		QueueDir:    filepath.Join(home, "queue"),
		MirrorDir:   filepath.Join(home, "mirror"),
		Debounce:    DefaultDebounce,
		Refresh:     DefaultRefresh,
		LogLevel:    DefaultLogLevel,
		ClaudeModel: DefaultModel,
	}
}

// HomeDir returns the data directory from QUADERNO_HOME,
// falling back to DefaultHome.
func HomeDir() string {
	if env := os.Getenv("QUADERNO_HOME"); env != "" {
		return ExpandHome(env)
	}
	return ExpandHome(DefaultHome)
}

// Load builds the configuration for the current environment
func Load() (Config, error) {
	home := HomeDir()
	cfg := Default(home)

	data, err := os.ReadFile(filepath.Join(home, FileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", FileName, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.Database = ExpandHome(cfg.Database)
	cfg.QueueDir = ExpandHome(cfg.QueueDir)
	cfg.MirrorDir = ExpandHome(cfg.MirrorDir)
	cfg.LogFile = ExpandHome(cfg.LogFile)
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"QUADERNO_DB":           &c.Database,
		"QUADERNO_USER":         &c.User,
		"QUADERNO_QUEUE":        &c.QueueDir,
		"QUADERNO_MIRROR":       &c.MirrorDir,
		"QUADERNO_LOG_FILE":     &c.LogFile,
		"QUADERNO_LOG_LEVEL":    &c.LogLevel,
		"QUADERNO_CLAUDE_MODEL": &c.ClaudeModel,
		"QUADERNO_EDITOR":       &c.Editor,
		"QUADERNO_METRICS_ADDR": &c.MetricsAddr,
	}
	for name, dst := range strs {
		if env := os.Getenv(name); env != "" {
			*dst = env
		}
	}

	durations := map[string]*time.Duration{
		"QUADERNO_DEBOUNCE": &c.Debounce,
		"QUADERNO_REFRESH":  &c.Refresh,
	}
	for name, dst := range durations {
		env := os.Getenv(name)
		if env == "" {
			continue
		}
		d, err := time.ParseDuration(env)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}
	return nil
}

// Validate rejects settings the binaries cannot run with
func (c Config) Validate() error {
	if strings.TrimSpace(c.User) == "" {
		return errors.New("user is required (set QUADERNO_USER)")
	}
	if c.Database == "" {
		return errors.New("database path is required")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if c.Refresh < 0 {
		return fmt.Errorf("refresh must not be negative, got %s", c.Refresh)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// WriteDefault creates a config file with the default settings unless one
// already exists
func WriteDefault(cfg Config) (string, error) {
	path := filepath.Join(cfg.Home, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(cfg.Home, 0755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return path, err
	}
	return path, os.WriteFile(path, data, 0644)
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
