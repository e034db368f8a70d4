package xslt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"recitation/internal/config"
	"recitation/internal/services"
)

// Executor abstracts command execution for testability. Run returns the
// command's standard output.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the stylesheet processor CLI.
type Client struct {
	binary     string
	stylesheet string
	workDir    string
	timeout    time.Duration
	exec       Executor
}

// New constructs a transform client.
func New(binary, stylesheet, workDir string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("xslt binary required")
	}
	if strings.TrimSpace(stylesheet) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "xslt", "transform.stylesheet is not set", nil)
	}
	c := &Client{
		binary:     binary,
		stylesheet: stylesheet,
		workDir:    workDir,
		timeout:    time.Duration(timeoutSeconds) * time.Second,
		exec:       commandExecutor{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds a client from the transform section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("xslt: config is nil")
	}
	return New(cfg.Transform.Command, cfg.Transform.Stylesheet, cfg.Paths.WorkDir, cfg.Transform.Timeout, opts...)
}

// OutputPath returns where the markup for identifier is written. The DOI
// prefix becomes a directory under the work dir.
func (c *Client) OutputPath(identifier string) (string, error) {
	if !strings.Contains(identifier, "/") {
		return "", services.Wrap(services.ErrValidation, "", "xslt", fmt.Sprintf("identifier %q has no DOI prefix separator", identifier), nil)
	}
	target := filepath.Join(c.workDir, filepath.FromSlash(identifier)+".mw.xml")
	if rel, err := filepath.Rel(c.workDir, target); err != nil || strings.HasPrefix(rel, "..") {
		return "", services.Wrap(services.ErrValidation, "", "xslt", fmt.Sprintf("identifier %q escapes the work directory", identifier), nil)
	}
	return target, nil
}

// Transform runs the stylesheet over sourcePath and writes the result to
// OutputPath(identifier).
func (c *Client) Transform(ctx context.Context, identifier, sourcePath string) (string, error) {
	target, err := c.OutputPath(identifier)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create markup directory: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.exec.Run(runCtx, c.binary, []string{c.stylesheet, sourcePath})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "", "xslt", fmt.Sprintf("%s failed", c.binary), err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return "", services.Wrap(services.ErrExternalTool, "", "xslt", fmt.Sprintf("%s produced no output", c.binary), nil)
	}
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return "", fmt.Errorf("write markup: %w", err)
	}
	return target, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
