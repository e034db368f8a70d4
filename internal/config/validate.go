package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateTransform(); err != nil {
		return err
	}
	if err := c.validateWiki(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Mode {
	case QueueModeFIFO, QueueModeLIFO:
		return nil
	default:
		return fmt.Errorf("queue.mode: unsupported value %q (want %q or %q)", c.Queue.Mode, QueueModeFIFO, QueueModeLIFO)
	}
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.worker_count":         c.Workflow.WorkerCount,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.heartbeat_interval":   c.Workflow.HeartbeatInterval,
	})
}

func (c *Config) validateResolver() error {
	if err := validateURL("resolver.base_url", c.Resolver.BaseURL); err != nil {
		return err
	}
	if c.Resolver.RetryDelayMS < 0 {
		return errors.New("resolver.retry_delay_ms must not be negative")
	}
	if c.Resolver.MaxAttempts > MaxResolverAttempts {
		return fmt.Errorf("resolver.max_attempts must be at most %d", MaxResolverAttempts)
	}
	return ensurePositiveMap(map[string]int{
		"resolver.max_attempts": c.Resolver.MaxAttempts,
		"resolver.timeout":      c.Resolver.Timeout,
	})
}

func (c *Config) validateArchive() error {
	if err := validateURL("archive.oa_service_url", c.Archive.OAServiceURL); err != nil {
		return err
	}
	if c.Archive.DownloadTimeout <= 0 {
		return errors.New("archive.download_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateTransform() error {
	if c.Transform.Timeout <= 0 {
		return errors.New("transform.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateWiki() error {
	if err := validateURL("wiki.api_url", c.Wiki.APIURL); err != nil {
		return err
	}
	if c.Wiki.MediaAPIURL != "" {
		if err := validateURL("wiki.media_api_url", c.Wiki.MediaAPIURL); err != nil {
			return err
		}
	}
	if c.Wiki.Timeout <= 0 {
		return errors.New("wiki.timeout must be positive (seconds)")
	}
	if (c.Wiki.Username == "") != (c.Wiki.Password == "") {
		return fmt.Errorf("wiki.username and wiki.password must be set together (or via %s/%s)", EnvWikiUsername, EnvWikiPassword)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" {
		if err := validateURL("notifications.ntfy_topic", c.Notifications.NtfyTopic); err != nil {
			return err
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero (keep forever) or positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s: invalid url %q", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
