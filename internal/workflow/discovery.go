package workflow

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"tunesort/internal/logging"
	"tunesort/internal/media"
	"tunesort/internal/services"
)

// Discover walks the input directory and enqueues every supported audio file
// as a pending ledger item. Returns the number of files enqueued.
func (e *Engine) Discover(ctx context.Context) (int, error) {
	var paths []string
	err := filepath.WalkDir(e.cfg.Paths.InputDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if media.IsSupportedPath(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, services.Wrap(
			services.ErrFatal, "discovery", "walk input",
			fmt.Sprintf("Input directory %s could not be read", e.cfg.Paths.InputDir), err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		file, err := e.catalog.Acquire(path)
		if err != nil {
			e.logger.Warn("skipping unreadable file",
				logging.String("source", path), logging.Error(err))
			continue
		}
		if _, err := e.store.NewItem(ctx, e.runID, path, file.Format, file.Size, e.dryRun()); err != nil {
			return 0, services.Wrap(
				services.ErrFatal, "discovery", "enqueue file",
				"Ledger insert failed", err)
		}
	}
	e.logger.Info("discovery complete",
		logging.Int("files", len(paths)),
		logging.String("input_dir", e.cfg.Paths.InputDir))
	return len(paths), nil
}

func (e *Engine) dryRun() bool {
	return e.cfg.Organizer.DryRun
}
