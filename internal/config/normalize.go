package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeResolver()
	c.normalizeArchive()
	if err := c.normalizeTransform(); err != nil {
		return err
	}
	c.normalizeWiki()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueue() {
	c.Queue.Mode = strings.ToLower(strings.TrimSpace(c.Queue.Mode))
	if c.Queue.Mode == "" {
		c.Queue.Mode = defaultQueueMode
	}
}

func (c *Config) normalizeResolver() {
	c.Resolver.BaseURL = strings.TrimSpace(c.Resolver.BaseURL)
	if c.Resolver.BaseURL == "" {
		c.Resolver.BaseURL = defaultResolverBaseURL
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.OAServiceURL = strings.TrimSpace(c.Archive.OAServiceURL)
	if c.Archive.OAServiceURL == "" {
		c.Archive.OAServiceURL = defaultOAServiceURL
	}
	ext := strings.ToLower(strings.TrimSpace(c.Archive.SourceExtension))
	if ext == "" {
		ext = defaultSourceExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Archive.SourceExtension = ext
}

func (c *Config) normalizeTransform() error {
	c.Transform.Command = strings.TrimSpace(c.Transform.Command)
	if c.Transform.Command == "" {
		c.Transform.Command = defaultTransformCommand
	}
	stylesheet := strings.TrimSpace(c.Transform.Stylesheet)
	if stylesheet == "" {
		c.Transform.Stylesheet = ""
		return nil
	}
	expanded, err := expandPath(stylesheet)
	if err != nil {
		return fmt.Errorf("transform.stylesheet: %w", err)
	}
	c.Transform.Stylesheet = expanded
	return nil
}

func (c *Config) normalizeWiki() {
	c.Wiki.APIURL = strings.TrimSpace(c.Wiki.APIURL)
	if c.Wiki.APIURL == "" {
		c.Wiki.APIURL = defaultWikiAPIURL
	}
	c.Wiki.MediaAPIURL = strings.TrimSpace(c.Wiki.MediaAPIURL)
	if c.Wiki.MediaAPIURL == "" {
		c.Wiki.MediaAPIURL = c.Wiki.APIURL
	}
	c.Wiki.Username = strings.TrimSpace(c.Wiki.Username)
	if c.Wiki.Username == "" {
		if value, ok := os.LookupEnv(EnvWikiUsername); ok {
			c.Wiki.Username = strings.TrimSpace(value)
		}
	}
	if c.Wiki.Password == "" {
		if value, ok := os.LookupEnv(EnvWikiPassword); ok {
			c.Wiki.Password = value
		}
	}
	c.Wiki.UserAgent = strings.TrimSpace(c.Wiki.UserAgent)
	if c.Wiki.UserAgent == "" {
		c.Wiki.UserAgent = defaultWikiUserAgent
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}
