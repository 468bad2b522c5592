package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tunesort/internal/config"
	"tunesort/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// buildLogger creates the run logger writing to stdout and the per-run log
// file. The returned closer owns the file handle.
func (c *commandContext) buildLogger(cfg *config.Config, stdout io.Writer) (*slog.Logger, func(), error) {
	outputs := []io.Writer{stdout}
	closer := func() {}

	logFile, err := logging.OpenLogFile(filepath.Join(cfg.Paths.LogDir, "tunesort.log"))
	if err == nil {
		outputs = append(outputs, logFile)
		closer = func() { _ = logFile.Close() }
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: outputs,
	})
	if err != nil {
		closer()
		return nil, nil, err
	}
	return logger, closer, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
