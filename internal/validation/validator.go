package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"tunesort/internal/config"
	"tunesort/internal/logging"
	"tunesort/internal/media"
	"tunesort/internal/queue"
	"tunesort/internal/services"
	"tunesort/internal/stage"
)

// Rejection reasons surfaced in ledger error messages.
var (
	ErrCorrupted         = errors.New("file cannot be decoded")
	ErrTooShort          = errors.New("duration below minimum")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Validator confirms a discovered file is decodable audio long enough to
// fingerprint before the pipeline spends an identification call on it.
type Validator struct {
	cfg     *config.Config
	store   *queue.Store
	prober  media.Prober
	catalog *media.Catalog
	logger  *slog.Logger
}

// NewValidator constructs the validation stage handler using the ffprobe
// binary named in configuration.
func NewValidator(cfg *config.Config, store *queue.Store, catalog *media.Catalog, logger *slog.Logger) *Validator {
	return NewValidatorWithDependencies(cfg, store, catalog, logger, media.NewFFprobe(cfg.FFprobeBinary()))
}

// NewValidatorWithDependencies allows injecting a prober (used in tests).
func NewValidatorWithDependencies(cfg *config.Config, store *queue.Store, catalog *media.Catalog, logger *slog.Logger, prober media.Prober) *Validator {
	return &Validator{
		cfg:     cfg,
		store:   store,
		prober:  prober,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "validator"),
	}
}

var _ stage.Handler = (*Validator)(nil)

func (v *Validator) Prepare(ctx context.Context, item *queue.Item) error {
	item.ErrorMessage = ""
	return nil
}

func (v *Validator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, v.logger)

	if !media.IsSupportedPath(item.SourcePath) {
		return services.Wrap(
			services.ErrValidation, "validating", "check extension",
			fmt.Sprintf("%s: %s", ErrUnsupportedFormat, item.Format), nil)
	}

	file, err := v.catalog.Acquire(item.SourcePath)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "validating", "stat file",
			"File disappeared before validation", err)
	}

	probe, err := v.prober.Probe(ctx, item.SourcePath)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "validating", "probe file",
			ErrCorrupted.Error(), err)
	}
	if probe.Duration < v.cfg.MinDuration() {
		return services.Wrap(
			services.ErrValidation, "validating", "check duration",
			fmt.Sprintf("%s: %.1fs < %.1fs", ErrTooShort,
				probe.Duration.Seconds(), v.cfg.MinDuration().Seconds()), nil)
	}

	file.Duration = probe.Duration
	item.DurationSeconds = probe.Duration.Seconds()
	item.SizeBytes = file.Size
	item.Status = queue.StatusValidated
	logger.Info("file validated",
		logging.String("source", item.SourcePath),
		logging.Duration("duration", probe.Duration),
		logging.Int64("size_bytes", file.Size))
	return nil
}

func (v *Validator) HealthCheck(ctx context.Context) stage.Health {
	const name = "validator"
	if _, err := exec.LookPath(v.cfg.FFprobeBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffprobe not found: %v", err))
	}
	if v.cfg.MinDuration() <= 0 {
		return stage.Unhealthy(name, "minimum duration must be positive")
	}
	return stage.Healthy(name)
}
