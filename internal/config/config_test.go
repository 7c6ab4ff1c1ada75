package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/studenttracker/client/internal/storage"
)

// isolate points HOME and the working directory at empty temp dirs so no
// real config or .env leaks into the test
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix+"_") {
			k, _, _ := strings.Cut(kv, "=")
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "http://localhost:5000/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s", cfg.Timeout)
	}
	if cfg.Storage != storage.KindFile {
		t.Errorf("Storage = %q", cfg.Storage)
	}
	if want := filepath.Join(home, ".studenttracker", "state.json"); cfg.StatePath != want {
		t.Errorf("StatePath = %q, want %q", cfg.StatePath, want)
	}
	if cfg.PageSize != 20 || cfg.CoursePageSize != 100 || cfg.RosterPageSize != 10 {
		t.Errorf("page sizes = %d/%d/%d", cfg.PageSize, cfg.CoursePageSize, cfg.RosterPageSize)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v", cfg.Level())
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	yaml := "api_url: https://school.example.com/api/\nstorage: sqlite\nroster_page_size: 25\nlog_level: warn\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDENTTRACKER_ROSTER_PAGE_SIZE", "50")
	t.Setenv("STUDENTTRACKER_TIMEOUT", "5s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "https://school.example.com/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Storage != storage.KindSQLite || !strings.HasSuffix(cfg.StatePath, "state.db") {
		t.Errorf("Storage = %q StatePath = %q", cfg.Storage, cfg.StatePath)
	}
	if cfg.RosterPageSize != 50 {
		t.Errorf("RosterPageSize = %d, env should win over file", cfg.RosterPageSize)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s", cfg.Timeout)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("Level() = %v", cfg.Level())
	}
	if cfg.File != path {
		t.Errorf("File = %q", cfg.File)
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".env", []byte("STUDENTTRACKER_API_URL=http://10.0.0.5:8080/api\nSTUDENTTRACKER_DEBUG=true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("STUDENTTRACKER_API_URL")
		os.Unsetenv("STUDENTTRACKER_DEBUG")
	})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:8080/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if !cfg.Debug || cfg.Level() != slog.LevelDebug {
		t.Errorf("Debug = %v Level = %v", cfg.Debug, cfg.Level())
	}
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	isolate(t)
	if err := os.WriteFile("studenttracker.yaml", []byte("storage: memory\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage != storage.KindMemory || cfg.StatePath != "" {
		t.Errorf("Storage = %q StatePath = %q", cfg.Storage, cfg.StatePath)
	}
	if cfg.File != "studenttracker.yaml" {
		t.Errorf("File = %q", cfg.File)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with a missing file succeeded")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIURL: "http://localhost:5000/api", Timeout: time.Second, Storage: storage.KindFile,
			PageSize: 20, CoursePageSize: 100, RosterPageSize: 10, LogLevel: "info",
		}
	}
	tests := []struct {
		name    string
		edit    func(c *Config)
		wantErr string
	}{
		{name: "valid", edit: func(c *Config) {}},
		{name: "relative url", edit: func(c *Config) { c.APIURL = "/api" }, wantErr: "api_url"},
		{name: "ftp url", edit: func(c *Config) { c.APIURL = "ftp://host/api" }, wantErr: "api_url"},
		{name: "zero timeout", edit: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout"},
		{name: "unknown storage", edit: func(c *Config) { c.Storage = "redis" }, wantErr: "storage"},
		{name: "page size too large", edit: func(c *Config) { c.PageSize = 501 }, wantErr: "page_size"},
		{name: "roster page size zero", edit: func(c *Config) { c.RosterPageSize = 0 }, wantErr: "roster_page_size"},
		{name: "bad log level", edit: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.edit(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.APIURL = "https://tracker.example.org/api"
	cfg.RosterPageSize = 15
	cfg.Timeout = 10 * time.Second

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := cfg.Write(path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.APIURL != cfg.APIURL || got.RosterPageSize != 15 || got.Timeout != 10*time.Second {
		t.Errorf("round trip = %+v", got)
	}
}
