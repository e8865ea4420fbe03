package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are not required
// here; provider calls report missing credentials when they are first needed.
func (c *Config) Validate() error {
	if err := c.validateText(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateProfiles(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateText() error {
	switch c.Text.Provider {
	case ProviderOpenAI, ProviderOpenRouter:
	default:
		return fmt.Errorf("text.provider: unsupported value %q (want %s or %s)", c.Text.Provider, ProviderOpenAI, ProviderOpenRouter)
	}
	return nil
}

func (c *Config) validateMedia() error {
	return ensurePositiveMap(map[string]int{
		"image.width":                   c.Image.Width,
		"image.height":                  c.Image.Height,
		"image.count":                   c.Image.Count,
		"render.width":                  c.Render.Width,
		"render.height":                 c.Render.Height,
		"transcript.timeout_seconds":    c.Transcript.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"jobs.segments":                 c.Jobs.Segments,
	})
}

func (c *Config) validateRetry() error {
	if c.Retry.Attempts < 1 {
		return errors.New("retry.attempts must be >= 1")
	}
	if c.Retry.MaxDelayMilli < 0 {
		return errors.New("retry.max_delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func (c *Config) validateProfiles() error {
	seen := make(map[string]struct{}, len(c.Profiles))
	for idx, p := range c.Profiles {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("profiles[%d].id must be set", idx)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("profiles: duplicate id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
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
