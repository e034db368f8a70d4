// Package daemonrun wires every collaborator of the recitation daemon and
// runs it until the process is signalled.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"recitation/internal/article"
	"recitation/internal/config"
	"recitation/internal/daemon"
	"recitation/internal/jobstore"
	"recitation/internal/logging"
	"recitation/internal/notifications"
	"recitation/internal/pipeline"
	"recitation/internal/preflight"
	"recitation/internal/queue"
	"recitation/internal/workflow"
)

// PIDFileName is written under paths.log_dir while the daemon runs.
const PIDFileName = "recitation.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the recitation daemon and blocks until the context is
// cancelled or SIGINT/SIGTERM arrives. In-flight jobs finish before it returns.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, logging.RunLogFileName(runID))
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		logging.WarnWithContext(logger, "current log pointer not updated", "log_pointer_failed",
			logging.Error(err),
			logging.String("log_path", logPath),
			logging.String(logging.FieldErrorHint, "read the run log directly; "+logging.LogFileName+" may be stale"),
		)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: logging.RunLogPattern,
		Exclude: []string{logPath},
	})

	if err := checkPreflight(signalCtx, logger, cfg); err != nil {
		return err
	}
	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	queueStore, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	records, err := jobstore.Open(cfg)
	if err != nil {
		queueStore.Close()
		logger.Error("open record store", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	d, err := buildDaemon(cfg, queueStore, records, notifier, logger)
	if err != nil {
		queueStore.Close()
		records.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that no other daemon is running and the data directory is writable"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("recitation daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func buildDaemon(cfg *config.Config, queueStore *queue.Store, records *jobstore.Store, notifier notifications.Service, logger *slog.Logger) (*daemon.Daemon, error) {
	adapters, err := article.NewDeps(cfg)
	if err != nil {
		return nil, fmt.Errorf("build adapters: %w", err)
	}
	runner, err := pipeline.New(cfg, article.NewPhaseSet(cfg, adapters, logger), records, pipeline.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	manager := workflow.NewManager(cfg, queueStore, records, runner, logger,
		workflow.OnSuccess(publishedNotifier(notifier, logger)),
		workflow.OnFailure(failureNotifier(notifier, logger)),
	)
	d, err := daemon.New(cfg, queueStore, records, logger, manager)
	if err != nil {
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

// notifyTimeout bounds a single alert so a slow ntfy server cannot hold a worker.
const notifyTimeout = 30 * time.Second

func publishedNotifier(notifier notifications.Service, logger *slog.Logger) func(workflow.Outcome) {
	return func(o workflow.Outcome) {
		if o.Title == "" || o.Skipped || o.Halted {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := notifier.NotifyPublished(ctx, o.Title, doiURL(o.Identifier)); err != nil {
			logNotifyFailure(logger, o, err)
		}
	}
}

func failureNotifier(notifier notifications.Service, logger *slog.Logger) func(workflow.Outcome) {
	return func(o workflow.Outcome) {
		if o.Err == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := notifier.NotifyError(ctx, o.Err, o.Identifier); err != nil {
			logNotifyFailure(logger, o, err)
		}
	}
}

func logNotifyFailure(logger *slog.Logger, o workflow.Outcome, err error) {
	logging.WarnWithContext(logger, "notification not delivered", "notification_failed",
		logging.String(logging.FieldIdentifier, o.Identifier),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
	)
}

func doiURL(identifier string) string {
	if identifier == "" {
		return ""
	}
	return "https://doi.org/" + identifier
}

// ensureCurrentLogPointer links LogFileName to the current run's log, falling
// back to a hard link where symlinks are unavailable.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func checkPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg))
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run `recitation status` for the full report"),
		)
		names = append(names, r.Name)
	}
	return errors.New("preflight failed: " + strings.Join(names, ", "))
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("wiki_credentials_present", cfg.WikiCredentialsConfigured()),
		logging.String("wiki_api", cfg.Wiki.APIURL),
		logging.String("media_api", cfg.MediaAPIURL()),
		logging.Bool("transform_available", binaryAvailable(cfg.Transform.Command)),
		logging.String("transform_command", cfg.Transform.Command),
		logging.String("stylesheet", cfg.Transform.Stylesheet),
		logging.Int("workers", cfg.Workflow.WorkerCount),
		logging.String("queue_mode", cfg.Queue.Mode),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
