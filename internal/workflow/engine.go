package workflow

import (
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tunesort/internal/config"
	"tunesort/internal/identify"
	"tunesort/internal/logging"
	"tunesort/internal/media"
	"tunesort/internal/organizer"
	"tunesort/internal/queue"
	"tunesort/internal/stage"
	"tunesort/internal/validation"
)

// pipelineStage binds a handler to its ledger status transitions and the
// outcome recorded when the handler fails.
type pipelineStage struct {
	name             string
	processingStatus queue.Status
	doneStatus       queue.Status
	handler          stage.Handler
	failureOutcome   queue.Outcome
}

// Engine runs the organization pipeline for a single invocation.
type Engine struct {
	cfg     *config.Config
	store   *queue.Store
	catalog *media.Catalog
	logger  *slog.Logger
	stages  []pipelineStage
	lock    *flock.Flock

	runID string
	// seenHashes maps content hash to the first item that carried it, so a
	// second identical file in the same run skips the recognition call.
	seenHashes map[string]int64
}

// NewEngine constructs the engine with real stage handlers.
func NewEngine(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Engine, error) {
	catalog := media.NewCatalog()
	validator := validation.NewValidator(cfg, store, catalog, logger)
	identifier, err := identify.NewIdentifier(cfg, store, catalog, logger)
	if err != nil {
		return nil, err
	}
	org := organizer.NewOrganizer(cfg, store, catalog, logger)
	return NewEngineWithHandlers(cfg, store, catalog, logger, validator, identifier, org), nil
}

// NewEngineWithHandlers allows injecting stage handlers (used in tests).
func NewEngineWithHandlers(cfg *config.Config, store *queue.Store, catalog *media.Catalog, logger *slog.Logger, validator, identifier, org stage.Handler) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "workflow"),
		stages: []pipelineStage{
			{
				name:             "validation",
				processingStatus: queue.StatusValidating,
				doneStatus:       queue.StatusValidated,
				handler:          validator,
				failureOutcome:   queue.OutcomeValidationFailed,
			},
			{
				name:             "identification",
				processingStatus: queue.StatusIdentifying,
				doneStatus:       queue.StatusIdentified,
				handler:          identifier,
				failureOutcome:   queue.OutcomeIdentificationFailed,
			},
			{
				name:             "organization",
				processingStatus: queue.StatusOrganizing,
				doneStatus:       queue.StatusCompleted,
				handler:          org,
				failureOutcome:   queue.OutcomeMoveFailed,
			},
		},
		lock:       flock.New(filepath.Join(cfg.Paths.LogDir, "tunesort.lock")),
		runID:      uuid.NewString(),
		seenHashes: make(map[string]int64),
	}
}

// RunID identifies this invocation in the ledger and the report.
func (e *Engine) RunID() string {
	return e.runID
}
