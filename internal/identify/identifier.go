package identify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"tunesort/internal/config"
	"tunesort/internal/identify/audd"
	"tunesort/internal/logging"
	"tunesort/internal/media"
	"tunesort/internal/queue"
	"tunesort/internal/services"
	"tunesort/internal/stage"
)

// Identifier cuts a fingerprint clip from each validated file and asks the
// recognition service who performed it.
type Identifier struct {
	cfg        *config.Config
	store      *queue.Store
	catalog    *media.Catalog
	recognizer audd.Recognizer
	sampler    media.Sampler
	limiter    *rate.Limiter
	logger     *slog.Logger
	rng        *rand.Rand

	retryBackoff time.Duration
}

// NewIdentifier constructs the identification stage handler with the real
// recognition client and ffmpeg sampler.
func NewIdentifier(cfg *config.Config, store *queue.Store, catalog *media.Catalog, logger *slog.Logger) (*Identifier, error) {
	client, err := audd.New(cfg.AudD.APIToken, cfg.AudD.BaseURL, cfg.RequestTimeout())
	if err != nil {
		return nil, services.Wrap(
			services.ErrConfiguration, "identifying", "build client",
			"Recognition client could not be constructed; set audd.api_token", err)
	}
	sampler := media.NewFFmpegSampler(cfg.FFmpegBinary())
	return NewIdentifierWithDependencies(cfg, store, catalog, logger, client, sampler), nil
}

// NewIdentifierWithDependencies allows injecting the recognizer and sampler
// (used in tests).
func NewIdentifierWithDependencies(cfg *config.Config, store *queue.Store, catalog *media.Catalog, logger *slog.Logger, recognizer audd.Recognizer, sampler media.Sampler) *Identifier {
	return &Identifier{
		cfg:          cfg,
		store:        store,
		catalog:      catalog,
		recognizer:   recognizer,
		sampler:      sampler,
		limiter:      rate.NewLimiter(rate.Every(cfg.CallDelay()), 1),
		logger:       logging.NewComponentLogger(logger, "identifier"),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		retryBackoff: time.Second,
	}
}

var _ stage.Handler = (*Identifier)(nil)

func (i *Identifier) Prepare(ctx context.Context, item *queue.Item) error {
	item.ErrorMessage = ""
	return nil
}

func (i *Identifier) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, i.logger)

	file, err := i.catalog.Acquire(item.SourcePath)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "identifying", "stat file",
			"File disappeared before identification", err)
	}
	hash, err := file.Hash()
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "identifying", "hash file",
			"Content hash could not be computed", err)
	}
	item.ContentHash = hash

	duration := file.Duration
	if duration <= 0 {
		duration = time.Duration(item.DurationSeconds * float64(time.Second))
	}
	window := media.ChooseClipWindow(duration, i.cfg.ClipDuration(), i.rng)

	clipPath, err := i.sampler.Sample(ctx, item.SourcePath, window)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool, "identifying", "extract clip",
			"ffmpeg could not extract the fingerprint clip", err)
	}
	defer os.Remove(clipPath)

	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger = logging.WithContext(ctx, i.logger)
	logger.Info("submitting clip for recognition",
		logging.String("source", item.SourcePath),
		logging.Duration("clip_offset", window.Offset),
		logging.Duration("clip_duration", window.Duration))

	song, err := i.recognize(ctx, logger, clipPath)
	if err != nil {
		return i.classifyRecognitionError(err)
	}

	item.Artist = fallback(song.Artist, "Unknown Artist")
	item.Title = fallback(song.Title, titleFromPath(item.SourcePath))
	item.Album = song.Album
	item.Score = song.Score
	item.Status = queue.StatusIdentified
	logger.Info("song identified",
		logging.String("artist", item.Artist),
		logging.String("title", item.Title),
		logging.String("album", item.Album))
	return nil
}

// recognize drives the bounded retry loop. Every attempt waits on the shared
// rate gate first so retries never burst past the configured call delay.
func (i *Identifier) recognize(ctx context.Context, logger *slog.Logger, clipPath string) (*audd.Song, error) {
	attempts := i.cfg.Identification.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := i.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		song, err := i.recognizer.Recognize(ctx, clipPath)
		if err == nil {
			return song, nil
		}
		lastErr = err
		if !retryable(err) || attempt == attempts-1 {
			break
		}
		backoff := i.retryBackoff << attempt
		logger.Warn("recognition attempt failed, backing off",
			logging.Int("attempt", attempt+1),
			logging.Duration("backoff", backoff),
			logging.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	return errors.Is(err, audd.ErrTransient) || errors.Is(err, audd.ErrRateLimited)
}

func (i *Identifier) classifyRecognitionError(err error) error {
	switch {
	case errors.Is(err, audd.ErrInvalidToken):
		return services.Wrap(
			services.ErrFatal, "identifying", "recognize clip",
			"Recognition service rejected the api token; fix audd.api_token and rerun", err)
	case errors.Is(err, audd.ErrNoMatch):
		return services.Wrap(
			services.ErrUnrecognized, "identifying", "recognize clip",
			"No match for fingerprint clip", err)
	case errors.Is(err, audd.ErrBadClip):
		return services.Wrap(
			services.ErrUnrecognized, "identifying", "recognize clip",
			"Recognition service rejected the clip", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return services.Wrap(
			services.ErrTransient, "identifying", "recognize clip",
			"Recognition attempts exhausted", err)
	}
}

func (i *Identifier) HealthCheck(ctx context.Context) stage.Health {
	const name = "identifier"
	if strings.TrimSpace(i.cfg.AudD.APIToken) == "" {
		return stage.Unhealthy(name, "audd.api_token is not configured")
	}
	if _, err := exec.LookPath(i.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg not found: %v", err))
	}
	return stage.Healthy(name)
}

func fallback(value, alt string) string {
	if strings.TrimSpace(value) == "" {
		return alt
	}
	return value
}

// titleFromPath derives a title from the source file name when the
// recognition service returned none.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
