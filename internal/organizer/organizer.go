package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tunesort/internal/config"
	"tunesort/internal/fileutil"
	"tunesort/internal/logging"
	"tunesort/internal/media"
	"tunesort/internal/queue"
	"tunesort/internal/services"
	"tunesort/internal/stage"
)

// Organizer moves identified files into their final library location,
// resolving collisions against files already there.
type Organizer struct {
	cfg     *config.Config
	store   *queue.Store
	catalog *media.Catalog
	logger  *slog.Logger
}

// NewOrganizer constructs the organization stage handler.
func NewOrganizer(cfg *config.Config, store *queue.Store, catalog *media.Catalog, logger *slog.Logger) *Organizer {
	return &Organizer{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "organizer"),
	}
}

var _ stage.Handler = (*Organizer)(nil)

func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	item.ErrorMessage = ""
	return nil
}

func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)

	destination := DestinationFor(o.cfg, item)
	item.DestinationPath = destination

	file, err := o.catalog.Acquire(item.SourcePath)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "organizing", "stat file",
			"File disappeared before organization", err)
	}

	resolution, err := Resolve(file, destination)
	if err != nil {
		return services.Wrap(
			services.ErrMove, "organizing", "resolve duplicate",
			"Duplicate comparison failed", err)
	}

	if item.DryRun {
		return o.simulate(logger, item, resolution, destination)
	}

	switch resolution.Decision {
	case DecisionDiscard:
		logger.Info("discarding duplicate",
			logging.String("source", item.SourcePath),
			logging.String("destination", destination),
			logging.String("reason", resolution.Reason))
		if err := os.Remove(item.SourcePath); err != nil {
			return services.Wrap(
				services.ErrMove, "organizing", "remove duplicate",
				"Duplicate source could not be removed", err)
		}
		o.catalog.Forget(item.SourcePath)
		item.ErrorMessage = resolution.Reason
		item.Status = queue.StatusDuplicate
		return nil
	case DecisionReplace:
		logger.Info("replacing existing library file",
			logging.String("destination", destination),
			logging.String("reason", resolution.Reason))
		if err := os.Remove(destination); err != nil {
			return services.Wrap(
				services.ErrMove, "organizing", "remove existing",
				"Existing library file could not be removed", err)
		}
	}

	if err := fileutil.MoveFile(item.SourcePath, destination); err != nil {
		return services.Wrap(
			services.ErrMove, "organizing", "move file",
			fmt.Sprintf("Could not move file into library at %s", destination), err)
	}
	o.catalog.Forget(item.SourcePath)

	item.Status = queue.StatusCompleted
	logger.Info("file organized",
		logging.String("artist", item.Artist),
		logging.String("title", item.Title),
		logging.String("destination", relativeToLibrary(o.cfg, destination)))
	return nil
}

// simulate records the decision a real run would have made without touching
// the filesystem.
func (o *Organizer) simulate(logger *slog.Logger, item *queue.Item, resolution Resolution, destination string) error {
	switch resolution.Decision {
	case DecisionDiscard:
		logger.Info("dry run: would discard duplicate",
			logging.String("source", item.SourcePath),
			logging.String("destination", destination),
			logging.String("reason", resolution.Reason))
		item.ErrorMessage = resolution.Reason
		item.Status = queue.StatusDuplicate
	case DecisionReplace:
		logger.Info("dry run: would replace existing library file",
			logging.String("source", item.SourcePath),
			logging.String("destination", destination),
			logging.String("reason", resolution.Reason))
		item.Status = queue.StatusCompleted
	default:
		logger.Info("dry run: would move file",
			logging.String("source", item.SourcePath),
			logging.String("destination", destination))
		item.Status = queue.StatusCompleted
	}
	return nil
}

func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "organizer"
	if o.cfg.Paths.LibraryDir == "" {
		return stage.Unhealthy(name, "library directory not configured")
	}
	return stage.Healthy(name)
}

func relativeToLibrary(cfg *config.Config, path string) string {
	rel, err := filepath.Rel(cfg.Paths.LibraryDir, path)
	if err != nil {
		return path
	}
	return rel
}
