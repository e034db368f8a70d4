package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Queue controls the claim order of the durable queue.
type Queue struct {
	Mode string `toml:"mode"`
}

// Workflow contains configuration for scheduler sizing and intervals.
type Workflow struct {
	WorkerCount        int `toml:"worker_count"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
}

// Resolver contains configuration for the identifier resolution service.
type Resolver struct {
	BaseURL      string `toml:"base_url"`
	MaxAttempts  int    `toml:"max_attempts"`
	RetryDelayMS int    `toml:"retry_delay_ms"`
	Timeout      int    `toml:"timeout"`
}

// Archive contains configuration for locating and downloading article bundles.
type Archive struct {
	OAServiceURL    string `toml:"oa_service_url"`
	DownloadTimeout int    `toml:"download_timeout"`
	SourceExtension string `toml:"source_extension"`
}

// Transform contains configuration for the markup stylesheet transform.
type Transform struct {
	Command    string `toml:"command"`
	Stylesheet string `toml:"stylesheet"`
	Timeout    int    `toml:"timeout"`
}

// Wiki contains configuration for the publishing targets.
type Wiki struct {
	APIURL      string `toml:"api_url"`
	MediaAPIURL string `toml:"media_api_url"`
	BasePath    string `toml:"base_path"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	UserAgent   string `toml:"user_agent"`
	Timeout     int    `toml:"timeout"`
}

// Notifications contains configuration for ntfy delivery.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for recitation.
//
// Configuration sections by subsystem:
//   - Paths: data (queue + records databases), work (archives, markup), logs
//   - Queue: claim order (fifo or lifo)
//   - Workflow: worker pool size and polling intervals
//   - Resolver: identifier conversion endpoint and retry bound
//   - Archive: open-access archive service and download limits
//   - Transform: stylesheet transform command
//   - Wiki: publishing endpoints and credentials
//   - Notifications: ntfy topic for publish and failure alerts
//   - Logging: log format, level, and per-run log retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Queue         Queue         `toml:"queue"`
	Workflow      Workflow      `toml:"workflow"`
	Resolver      Resolver      `toml:"resolver"`
	Archive       Archive       `toml:"archive"`
	Transform     Transform     `toml:"transform"`
	Wiki          Wiki          `toml:"wiki"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recitation.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueuePath returns the location of the durable queue database.
func (c *Config) QueuePath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// RecordsPath returns the location of the job record database.
func (c *Config) RecordsPath() string {
	return filepath.Join(c.Paths.DataDir, "records.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "recitation.lock")
}

// PollInterval returns the idle queue polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.QueuePollInterval) * time.Second
}

// ErrorRetryInterval returns the delay applied after a queue storage failure.
func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Workflow.ErrorRetryInterval) * time.Second
}

// HeartbeatInterval returns the scheduler status logging interval.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

// ResolverRetryDelay returns the base backoff between identifier lookups.
func (c *Config) ResolverRetryDelay() time.Duration {
	return time.Duration(c.Resolver.RetryDelayMS) * time.Millisecond
}

// MediaAPIURL returns the API endpoint media files are uploaded to. It falls
// back to wiki.api_url when wiki.media_api_url is unset.
func (c *Config) MediaAPIURL() string {
	if url := strings.TrimSpace(c.Wiki.MediaAPIURL); url != "" {
		return url
	}
	return c.Wiki.APIURL
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// WikiCredentialsConfigured reports whether both wiki username and password are set.
func (c *Config) WikiCredentialsConfigured() bool {
	return c.Wiki.Username != "" && c.Wiki.Password != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
