package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shortforge/internal/config"
	"shortforge/internal/daemonctl"
	"shortforge/internal/logging"
	"shortforge/internal/projects"
	"shortforge/internal/services"
	"shortforge/internal/store"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// logger writes to the command's stderr so stdout stays parseable.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg := c.config
	level := c.logLevel()
	format := "console"
	if cfg != nil {
		if level == "" {
			level = cfg.Logging.Level
		}
		format = cfg.Logging.Format
	}
	if level == "" {
		level = "warn"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// workspace is a loaded store and project manager for one command.
type workspace struct {
	cfg     *config.Config
	store   *store.Store
	manager *projects.Manager
	logger  *slog.Logger
}

func (c *commandContext) withWorkspace(cmd *cobra.Command, fn func(*workspace) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	logger := c.logger(cmd)
	manager := projects.NewManager(st, logger)
	if err := manager.Load(cmd.Context()); err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	return fn(&workspace{cfg: cfg, store: st, manager: manager, logger: logger})
}

func (c *commandContext) client() (*daemonctl.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return daemonctl.NewClient(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// formatError appends the operator hint carried by service errors.
func formatError(err error) string {
	details := services.Details(err)
	if details.Hint != "" {
		return fmt.Sprintf("%v\nhint: %s", err, details.Hint)
	}
	return err.Error()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
