// Package config resolves client settings from defaults, an optional YAML
// file, a .env file and STUDENTTRACKER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/studenttracker/client/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. STUDENTTRACKER_API_URL
const EnvPrefix = "STUDENTTRACKER"

// Config is the resolved client configuration
type Config struct {
	APIURL         string
	Timeout        time.Duration
	Storage        storage.Kind
	StatePath      string
	PageSize       int
	CoursePageSize int
	RosterPageSize int
	LogLevel       string
	LogFile        string
	Debug          bool

	// File is the config file that was read, empty when none was found
	File string
}

// Dir returns the per-user directory (~/.studenttracker)
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".studenttracker"), nil
}

func defaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:5000/api")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("storage", string(storage.KindFile))
	v.SetDefault("state_path", "")
	v.SetDefault("page_size", 20)
	v.SetDefault("course_page_size", 100)
	v.SetDefault("roster_page_size", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)
}

// Load resolves the configuration. path names a YAML file to read; when
// empty, ./studenttracker.yaml and then ~/.studenttracker/config.yaml are
// tried and skipped if absent. A .env in the working directory is loaded
// first; it never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file, err := findFile(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{
		APIURL:         strings.TrimRight(v.GetString("api_url"), "/"),
		Timeout:        v.GetDuration("timeout"),
		Storage:        storage.Kind(strings.ToLower(v.GetString("storage"))),
		StatePath:      v.GetString("state_path"),
		PageSize:       v.GetInt("page_size"),
		CoursePageSize: v.GetInt("course_page_size"),
		RosterPageSize: v.GetInt("roster_page_size"),
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		LogFile:        v.GetString("log_file"),
		Debug:          v.GetBool("debug"),
		File:           file,
	}
	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	candidates := []string{"studenttracker.yaml"}
	if dir, err := Dir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

func (c *Config) fillPaths() error {
	if c.StatePath == "" && c.Storage != storage.KindMemory {
		p, err := storage.DefaultPath(c.Storage)
		if err != nil {
			return fmt.Errorf("state path: %w", err)
		}
		c.StatePath = p
	}
	if c.LogFile == "" {
		dir, err := Dir()
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		c.LogFile = filepath.Join(dir, "client.log")
	}
	return nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q must be an absolute http(s) URL", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.Storage {
	case storage.KindFile, storage.KindSQLite, storage.KindMemory:
	default:
		return fmt.Errorf("storage %q must be one of file, sqlite, memory", c.Storage)
	}
	for name, n := range map[string]int{
		"page_size":        c.PageSize,
		"course_page_size": c.CoursePageSize,
		"roster_page_size": c.RosterPageSize,
	} {
		if n < 1 || n > 500 {
			return fmt.Errorf("%s must be between 1 and 500, got %d", name, n)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level for LogLevel, with Debug forcing debug
func (c *Config) Level() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level %q must be one of debug, info, warn, error", s)
}

// Write saves c as YAML to path, creating the directory if needed
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	out := struct {
		APIURL         string       `yaml:"api_url"`
		Timeout        string       `yaml:"timeout"`
		Storage        storage.Kind `yaml:"storage"`
		StatePath      string       `yaml:"state_path"`
		PageSize       int          `yaml:"page_size"`
		CoursePageSize int          `yaml:"course_page_size"`
		RosterPageSize int          `yaml:"roster_page_size"`
		LogLevel       string       `yaml:"log_level"`
		LogFile        string       `yaml:"log_file"`
		Debug          bool         `yaml:"debug"`
	}{
		c.APIURL, c.Timeout.String(), c.Storage, c.StatePath, c.PageSize,
		c.CoursePageSize, c.RosterPageSize, c.LogLevel, c.LogFile, c.Debug,
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
