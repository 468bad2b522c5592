package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tunesort/internal/logging"
	"tunesort/internal/queue"
	"tunesort/internal/report"
	"tunesort/internal/services"
)

// Run executes one complete organization pass: preflight, discovery, and the
// sequential drain of the ledger queue. The report document is returned even
// when the run aborts, covering whatever outcomes were recorded.
func (e *Engine) Run(ctx context.Context) (report.Document, error) {
	locked, err := e.lock.TryLock()
	if err != nil {
		return report.Document{}, services.Wrap(
			services.ErrFatal, "run", "acquire lock", "Run lock could not be acquired", err)
	}
	if !locked {
		return report.Document{}, services.Wrap(
			services.ErrFatal, "run", "acquire lock",
			"Another tunesort run is already in progress", nil)
	}
	defer func() {
		_ = e.lock.Unlock()
	}()

	if err := e.Preflight(ctx); err != nil {
		return report.Document{}, err
	}

	count, err := e.Discover(ctx)
	if err != nil {
		return report.Document{}, err
	}
	e.logger.Info("run started",
		logging.String("run_id", e.runID),
		logging.Int("files", count),
		logging.Bool("dry_run", e.dryRun()))

	var runErr error
	for {
		item, err := e.store.NextPending(ctx, e.runID)
		if err != nil {
			runErr = services.Wrap(services.ErrFatal, "run", "fetch next item", "Ledger read failed", err)
			break
		}
		if item == nil {
			break
		}
		if err := e.processItem(ctx, item); err != nil {
			runErr = err
			break
		}
	}

	doc, reportErr := e.flushReport(ctx)
	if runErr != nil {
		return doc, runErr
	}
	return doc, reportErr
}

// processItem walks one item through the stage table. Per-file failures
// record a terminal outcome and return nil so the run continues; fatal
// errors propagate and abort the run.
func (e *Engine) processItem(ctx context.Context, item *queue.Item) error {
	itemCtx := services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(itemCtx, e.logger)

	for _, st := range e.stages {
		stageCtx := services.WithStage(itemCtx, st.name)

		item.Status = st.processingStatus
		if err := e.store.Update(stageCtx, item); err != nil {
			return services.Wrap(services.ErrFatal, st.name, "persist transition", "Ledger write failed", err)
		}

		if st.processingStatus == queue.StatusIdentifying {
			handled, err := e.discardInRunDuplicate(stageCtx, item)
			if err != nil {
				return err
			}
			if handled {
				return nil
			}
		}

		if err := st.handler.Prepare(stageCtx, item); err != nil {
			return e.failItem(stageCtx, item, st, err)
		}
		if err := st.handler.Execute(stageCtx, item); err != nil {
			if services.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				item.ErrorMessage = err.Error()
				if updateErr := e.store.Update(stageCtx, item); updateErr != nil {
					logger.Error("persist abort state failed", logging.Error(updateErr))
				}
				return err
			}
			return e.failItem(stageCtx, item, st, err)
		}

		if err := e.store.Update(stageCtx, item); err != nil {
			return services.Wrap(services.ErrFatal, st.name, "persist result", "Ledger write failed", err)
		}

		switch item.Status {
		case queue.StatusDuplicate:
			return e.recordOutcome(stageCtx, item, queue.OutcomeDuplicateDiscarded, item.ErrorMessage)
		case queue.StatusCompleted:
			return e.recordOutcome(stageCtx, item, queue.OutcomeOrganized, "")
		}
	}
	return fmt.Errorf("item %d finished stages in non-terminal status %s", item.ID, item.Status)
}

// discardInRunDuplicate short-circuits identification when the same content
// hash was already organized earlier in this run, saving a recognition call.
func (e *Engine) discardInRunDuplicate(ctx context.Context, item *queue.Item) (bool, error) {
	file, err := e.catalog.Acquire(item.SourcePath)
	if err != nil {
		// Let the identification stage report the missing file.
		return false, nil
	}
	hash, err := file.Hash()
	if err != nil {
		return false, nil
	}
	item.ContentHash = hash
	firstID, seen := e.seenHashes[hash]
	if !seen {
		e.seenHashes[hash] = item.ID
		return false, nil
	}

	logger := logging.WithContext(ctx, e.logger)
	reason := fmt.Sprintf("identical content already processed as item %d", firstID)
	logger.Info("discarding in-run duplicate",
		logging.String("source", item.SourcePath),
		logging.Int64("first_item", firstID))
	if !item.DryRun {
		if err := os.Remove(item.SourcePath); err != nil {
			return true, e.failItem(ctx, item, pipelineStage{
				name:           "identification",
				failureOutcome: queue.OutcomeIdentificationFailed,
			}, services.Wrap(services.ErrValidation, "identifying", "remove duplicate",
				"In-run duplicate could not be removed", err))
		}
		e.catalog.Forget(item.SourcePath)
	}
	return true, e.recordOutcome(ctx, item, queue.OutcomeDuplicateDiscarded, reason)
}

// failItem records a per-file terminal outcome and keeps the run going.
func (e *Engine) failItem(ctx context.Context, item *queue.Item, st pipelineStage, cause error) error {
	logger := logging.WithContext(ctx, e.logger)
	logger.Warn("stage failed for file",
		logging.String("stage", st.name),
		logging.String("source", item.SourcePath),
		logging.Error(cause))
	return e.recordOutcome(ctx, item, st.failureOutcome, cause.Error())
}

func (e *Engine) recordOutcome(ctx context.Context, item *queue.Item, outcome queue.Outcome, message string) error {
	if err := e.store.RecordOutcome(ctx, item, outcome, message); err != nil {
		if errors.Is(err, queue.ErrOutcomeRecorded) {
			return nil
		}
		return services.Wrap(services.ErrFatal, "run", "record outcome", "Ledger write failed", err)
	}
	return nil
}

// flushReport writes organization_results.json from the run's ledger rows.
// Dry runs report to the log only and leave the library untouched.
func (e *Engine) flushReport(ctx context.Context) (report.Document, error) {
	items, err := e.store.ItemsByRun(ctx, e.runID)
	if err != nil {
		return report.Document{}, services.Wrap(
			services.ErrFatal, "run", "load ledger", "Ledger read failed", err)
	}
	doc := report.Build(e.runID, items)
	if e.dryRun() {
		e.logger.Info("dry run complete; skipping report file",
			logging.Int("total", doc.Stats.Total),
			logging.Int("organized", doc.Stats.Organized))
		return doc, nil
	}
	path := report.Path(e.cfg.Paths.LibraryDir)
	if err := report.Write(path, doc); err != nil {
		return doc, services.Wrap(
			services.ErrFatal, "run", "write report", "Results document could not be written", err)
	}
	e.logger.Info("report written", logging.String("path", path))
	return doc, nil
}
