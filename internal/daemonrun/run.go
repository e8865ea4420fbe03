package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shortforge/internal/config"
	"shortforge/internal/daemon"
	"shortforge/internal/deps"
	"shortforge/internal/jobs"
	"shortforge/internal/logging"
	"shortforge/internal/notifications"
	"shortforge/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the shortforge daemon and blocks until SIGINT/SIGTERM or cmdCtx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shortforge-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.LogPath(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shortforge.log link: %v\n", err)
	}

	snapshot := deps.Snapshot(signalCtx, cfg)
	logDependencySnapshot(logger, cfg, snapshot)

	pidPath := filepath.Join(cfg.Paths.DataDir, "shortforge.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	providers := BuildProviders(cfg, logger)
	engine := jobs.NewEngine(providers.JobProviders(), func() *config.Config { return cfg }, cfg.Profile, logger,
		jobs.WithRepository(st),
		jobs.WithNotifier(notifications.NewService(cfg)),
	)

	d, err := daemon.New(cfg, st, engine, logger, daemon.WithDependencies(snapshot))
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.String(logging.FieldErrorHint, "check that no other daemon holds "+cfg.LockPath()+" and that api.bind is free"),
			logging.Error(err),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("shortforge daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
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

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config, statuses []deps.Status) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("text_provider", cfg.Text.Provider),
		logging.Bool("text_keys_present", strings.TrimSpace(cfg.Text.APIKeys) != ""),
		logging.Bool("image_keys_present", strings.TrimSpace(cfg.Image.APIKeys) != ""),
		logging.Bool("voice_keys_present", strings.TrimSpace(cfg.Voice.APIKeys) != ""),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	}
	for _, status := range statuses {
		key := strings.ToLower(strings.ReplaceAll(status.Name, "-", "_"))
		attrs = append(attrs, logging.Bool(key+"_available", status.Available))
		if status.Version != "" {
			attrs = append(attrs, logging.String(key+"_version", status.Version))
		}
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
