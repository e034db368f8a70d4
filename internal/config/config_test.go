package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"recitation/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvWikiUsername, "")
	t.Setenv(config.EnvWikiPassword, "")
	chdirForTest(t, t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "recitation")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.QueuePath() != filepath.Join(wantData, "queue.db") {
		t.Fatalf("unexpected queue path: %q", cfg.QueuePath())
	}
	if cfg.Queue.Mode != config.QueueModeFIFO {
		t.Fatalf("expected fifo default, got %q", cfg.Queue.Mode)
	}
	if cfg.Workflow.WorkerCount != 8 {
		t.Fatalf("expected 8 workers by default, got %d", cfg.Workflow.WorkerCount)
	}
	if cfg.Resolver.MaxAttempts != 5 {
		t.Fatalf("expected 5 resolver attempts by default, got %d", cfg.Resolver.MaxAttempts)
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Wiki.MediaAPIURL != cfg.Wiki.APIURL || cfg.MediaAPIURL() != cfg.Wiki.APIURL {
		t.Fatalf("expected media api url to default to api url, got %q", cfg.Wiki.MediaAPIURL)
	}
	if cfg.WikiCredentialsConfigured() {
		t.Fatal("expected no wiki credentials by default")
	}
	if cfg.Notifications.NtfyTopic != "" || cfg.NotificationTimeout() != 10*time.Second {
		t.Fatalf("expected notifications disabled with 10s timeout, got %+v", cfg.Notifications)
	}
	if cfg.Logging.RetentionDays != 30 {
		t.Fatalf("expected 30 day log retention by default, got %d", cfg.Logging.RetentionDays)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "recitation.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Queue struct {
			Mode string `toml:"mode"`
		} `toml:"queue"`
		Workflow struct {
			WorkerCount int `toml:"worker_count"`
		} `toml:"workflow"`
		Wiki struct {
			APIURL string `toml:"api_url"`
		} `toml:"wiki"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Queue.Mode = " LIFO "
	custom.Workflow.WorkerCount = 3
	custom.Wiki.APIURL = "https://wiki.example.org/w/api.php"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Queue.Mode != config.QueueModeLIFO {
		t.Fatalf("expected normalized lifo mode, got %q", cfg.Queue.Mode)
	}
	if cfg.Workflow.WorkerCount != 3 {
		t.Fatalf("unexpected worker count: %d", cfg.Workflow.WorkerCount)
	}
	if cfg.Wiki.MediaAPIURL != "https://wiki.example.org/w/api.php" {
		t.Fatalf("expected media api url to fall back to api url, got %q", cfg.Wiki.MediaAPIURL)
	}
}

func TestMediaAPIURLFallsBackWithoutNormalize(t *testing.T) {
	cfg := config.Default()
	if cfg.Wiki.MediaAPIURL != "" {
		t.Fatalf("expected no media api url default, got %q", cfg.Wiki.MediaAPIURL)
	}
	cfg.Wiki.APIURL = "https://test.wiki.example/w/api.php"
	if got := cfg.MediaAPIURL(); got != cfg.Wiki.APIURL {
		t.Fatalf("expected fallback to api url, got %q", got)
	}
	cfg.Wiki.MediaAPIURL = "https://media.example/w/api.php"
	if got := cfg.MediaAPIURL(); got != "https://media.example/w/api.php" {
		t.Fatalf("expected explicit media url, got %q", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "recitation.toml")
	if err := os.WriteFile(configPath, []byte("[queue]\nmode = \"fifo\"\npriority = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestWikiCredentialsFromEnvironment(t *testing.T) {
	t.Setenv(config.EnvWikiUsername, "bot")
	t.Setenv(config.EnvWikiPassword, "secret")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Wiki.Username != "bot" || cfg.Wiki.Password != "secret" {
		t.Fatalf("expected env credentials, got %q/%q", cfg.Wiki.Username, cfg.Wiki.Password)
	}
	if !cfg.WikiCredentialsConfigured() {
		t.Fatal("expected credentials configured")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"queue mode", func(c *config.Config) { c.Queue.Mode = "random" }, "queue.mode"},
		{"workers", func(c *config.Config) { c.Workflow.WorkerCount = 0 }, "workflow.worker_count"},
		{"attempts", func(c *config.Config) { c.Resolver.MaxAttempts = 0 }, "resolver.max_attempts"},
		{"too many attempts", func(c *config.Config) { c.Resolver.MaxAttempts = config.MaxResolverAttempts + 1 }, "resolver.max_attempts"},
		{"media url", func(c *config.Config) { c.Wiki.MediaAPIURL = "not a url" }, "wiki.media_api_url"},
		{"resolver url", func(c *config.Config) { c.Resolver.BaseURL = "not a url" }, "resolver.base_url"},
		{"half credentials", func(c *config.Config) { c.Wiki.Username = "bot" }, "wiki.username"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"retention", func(c *config.Config) { c.Logging.RetentionDays = -1 }, "logging.retention_days"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }, "notifications.ntfy_topic"},
		{"ntfy timeout", func(c *config.Config) { c.Notifications.RequestTimeout = 0 }, "notifications.request_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvWikiUsername, "")
	t.Setenv(config.EnvWikiPassword, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Transform.Command != "xsltproc" {
		t.Fatalf("unexpected transform command: %q", cfg.Transform.Command)
	}
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
