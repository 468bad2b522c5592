package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudD(); err != nil {
		return err
	}
	if err := c.validateIdentification(); err != nil {
		return err
	}
	if err := c.validateOrganizer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAudD() error {
	if c.AudD.APIToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tunesort/config.toml"
		}
		return fmt.Errorf("audd.api_token is required. Set TUNESORT_API_TOKEN env var or edit %s (create with 'tunesort config init')", defaultPath)
	}
	if c.AudD.TimeoutSeconds <= 0 {
		return errors.New("audd.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateIdentification() error {
	if c.Identification.CallDelaySeconds < 0 {
		return errors.New("identification.call_delay_seconds must be >= 0")
	}
	if c.Identification.MaxAttempts < 1 {
		return errors.New("identification.max_attempts must be >= 1")
	}
	if c.Identification.ClipDurationSeconds <= 0 {
		return errors.New("identification.clip_duration_seconds must be positive")
	}
	if c.Identification.MinDurationSeconds <= 0 {
		return errors.New("identification.min_duration_seconds must be positive")
	}
	return nil
}

func (c *Config) validateOrganizer() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Organizer.MinFreeMiB < 0 {
		return errors.New("organizer.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}
