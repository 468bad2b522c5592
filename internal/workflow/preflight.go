package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"tunesort/internal/logging"
	"tunesort/internal/services"
)

// Preflight verifies the run can succeed before any file is touched: stage
// handlers report healthy, the input directory is readable, and the library
// filesystem has headroom for the moves.
func (e *Engine) Preflight(ctx context.Context) error {
	var problems []string
	for _, st := range e.stages {
		health := st.handler.HealthCheck(ctx)
		if !health.Ready {
			problems = append(problems, fmt.Sprintf("%s: %s", health.Name, health.Detail))
		}
	}
	if len(problems) > 0 {
		return services.Wrap(
			services.ErrFatal, "preflight", "health checks",
			strings.Join(problems, "; "), nil)
	}

	info, err := os.Stat(e.cfg.Paths.InputDir)
	if err != nil {
		return services.Wrap(
			services.ErrFatal, "preflight", "check input dir",
			fmt.Sprintf("Input directory %s is not accessible", e.cfg.Paths.InputDir), err)
	}
	if !info.IsDir() {
		return services.Wrap(
			services.ErrFatal, "preflight", "check input dir",
			fmt.Sprintf("%s is not a directory", e.cfg.Paths.InputDir), nil)
	}

	if !e.dryRun() {
		if err := e.checkLibrarySpace(); err != nil {
			return err
		}
	}

	e.logger.Debug("preflight passed", logging.Int("stages", len(e.stages)))
	return nil
}

// checkLibrarySpace stats the filesystem that will receive the library. The
// library directory itself may not exist yet; the nearest existing ancestor
// is good enough since they share a filesystem in any sane layout.
func (e *Engine) checkLibrarySpace() error {
	required := uint64(e.cfg.Organizer.MinFreeMiB) * 1024 * 1024
	if required == 0 {
		return nil
	}
	target := nearestExisting(e.cfg.Paths.LibraryDir)
	var stat unix.Statfs_t
	if err := unix.Statfs(target, &stat); err != nil {
		return services.Wrap(
			services.ErrFatal, "preflight", "check disk space",
			fmt.Sprintf("Could not stat filesystem at %s", target), err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < required {
		return services.Wrap(
			services.ErrFatal, "preflight", "check disk space",
			fmt.Sprintf("Only %d MiB free on library filesystem, %d MiB required",
				free/(1024*1024), e.cfg.Organizer.MinFreeMiB), nil)
	}
	return nil
}

func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
