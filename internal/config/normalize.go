package config

import (
	"os"
	"strings"
)

// normalize expands paths, trims string fields, and applies environment
// overrides before validation.
func (c *Config) normalize() error {
	var err error

	c.AudD.APIToken = strings.TrimSpace(c.AudD.APIToken)
	if c.AudD.APIToken == "" {
		c.AudD.APIToken = strings.TrimSpace(os.Getenv("TUNESORT_API_TOKEN"))
	}
	c.AudD.BaseURL = strings.TrimSpace(c.AudD.BaseURL)
	if c.AudD.BaseURL == "" {
		c.AudD.BaseURL = defaultAudDBaseURL
	}

	c.Organizer.SingleSongsDir = strings.TrimSpace(c.Organizer.SingleSongsDir)
	if c.Organizer.SingleSongsDir == "" {
		c.Organizer.SingleSongsDir = defaultSingleSongsDir
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	if c.Paths.InputDir != "" {
		if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
			return err
		}
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	return nil
}
