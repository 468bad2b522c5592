package validation_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tunesort/internal/media"
	"tunesort/internal/queue"
	"tunesort/internal/services"
	"tunesort/internal/testsupport"
	"tunesort/internal/validation"
)

type stubProber struct {
	result media.ProbeResult
	err    error
}

func (s stubProber) Probe(ctx context.Context, path string) (media.ProbeResult, error) {
	return s.result, s.err
}

func newValidator(t *testing.T, prober media.Prober) (*validation.Validator, *queue.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	v := validation.NewValidatorWithDependencies(cfg, store, media.NewCatalog(), nil, prober)
	return v, store, cfg.Paths.InputDir
}

func TestValidatorAcceptsDecodableFile(t *testing.T) {
	prober := stubProber{result: media.ProbeResult{FormatName: "mp3", Duration: 185 * time.Second}}
	v, store, inputDir := newValidator(t, prober)

	source := filepath.Join(inputDir, "song.mp3")
	testsupport.WriteFile(t, source, 2048)
	item := testsupport.NewItem(t, store, "run-1", source)

	if err := v.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Status != queue.StatusValidated {
		t.Fatalf("status = %s", item.Status)
	}
	if item.DurationSeconds != 185 {
		t.Fatalf("duration = %f", item.DurationSeconds)
	}
	if item.SizeBytes != 2048 {
		t.Fatalf("size = %d", item.SizeBytes)
	}
}

func TestValidatorRejectsCorruptFile(t *testing.T) {
	prober := stubProber{err: errors.New("invalid data found when processing input")}
	v, store, inputDir := newValidator(t, prober)

	source := filepath.Join(inputDir, "corrupt.wav")
	testsupport.WriteFile(t, source, 64)
	item := testsupport.NewItem(t, store, "run-1", source)

	err := v.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidatorDurationFloorIsInclusive(t *testing.T) {
	cases := []struct {
		name     string
		duration time.Duration
		wantErr  bool
	}{
		{"exactly at floor", 10 * time.Second, false},
		{"just below floor", 9900 * time.Millisecond, true},
		{"well above floor", time.Minute, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prober := stubProber{result: media.ProbeResult{FormatName: "mp3", Duration: tc.duration}}
			v, store, inputDir := newValidator(t, prober)

			source := filepath.Join(inputDir, "clip.mp3")
			testsupport.WriteFile(t, source, 128)
			item := testsupport.NewItem(t, store, "run-1", source)

			err := v.Execute(context.Background(), item)
			if tc.wantErr && !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	}
}

func TestValidatorRejectsUnsupportedExtension(t *testing.T) {
	prober := stubProber{result: media.ProbeResult{FormatName: "jpeg", Duration: time.Minute}}
	v, store, inputDir := newValidator(t, prober)

	source := filepath.Join(inputDir, "cover.jpg")
	testsupport.WriteFile(t, source, 64)
	item := testsupport.NewItem(t, store, "run-1", source)

	err := v.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidatorRejectsMissingFile(t *testing.T) {
	prober := stubProber{result: media.ProbeResult{FormatName: "mp3", Duration: time.Minute}}
	v, store, inputDir := newValidator(t, prober)

	source := filepath.Join(inputDir, "ghost.mp3")
	item := testsupport.NewItem(t, store, "run-1", source)

	err := v.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
