package identify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tunesort/internal/identify/audd"
	"tunesort/internal/media"
	"tunesort/internal/queue"
	"tunesort/internal/services"
	"tunesort/internal/testsupport"
)

type scriptedRecognizer struct {
	responses []recognizerStep
	calls     int
}

type recognizerStep struct {
	song *audd.Song
	err  error
}

func (s *scriptedRecognizer) Recognize(ctx context.Context, clipPath string) (*audd.Song, error) {
	step := s.responses[len(s.responses)-1]
	if s.calls < len(s.responses) {
		step = s.responses[s.calls]
	}
	s.calls++
	return step.song, step.err
}

type stubSampler struct {
	dir string
}

func (s stubSampler) Sample(ctx context.Context, path string, window media.ClipWindow) (string, error) {
	clip := filepath.Join(s.dir, "clip.mp3")
	if err := os.WriteFile(clip, []byte("clip"), 0o644); err != nil {
		return "", err
	}
	return clip, nil
}

func newTestIdentifier(t *testing.T, recognizer audd.Recognizer) (*Identifier, *queue.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sampler := stubSampler{dir: t.TempDir()}
	ident := NewIdentifierWithDependencies(cfg, store, media.NewCatalog(), nil, recognizer, sampler)
	ident.retryBackoff = time.Millisecond
	return ident, store, cfg.Paths.InputDir
}

func newItem(t *testing.T, store *queue.Store, inputDir string) *queue.Item {
	t.Helper()
	source := filepath.Join(inputDir, "song.mp3")
	testsupport.WriteFile(t, source, 4096)
	item := testsupport.NewItem(t, store, "run-1", source)
	item.DurationSeconds = 200
	return item
}

func TestIdentifierRecordsMetadataOnSuccess(t *testing.T) {
	recognizer := &scriptedRecognizer{responses: []recognizerStep{
		{song: &audd.Song{Artist: "Radiohead", Title: "Karma Police", Album: "OK Computer", Score: 88}},
	}}
	ident, store, inputDir := newTestIdentifier(t, recognizer)
	item := newItem(t, store, inputDir)

	if err := ident.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Status != queue.StatusIdentified {
		t.Fatalf("status = %s", item.Status)
	}
	if item.Artist != "Radiohead" || item.Album != "OK Computer" || item.Title != "Karma Police" {
		t.Fatalf("unexpected metadata %q/%q/%q", item.Artist, item.Album, item.Title)
	}
	if item.ContentHash == "" {
		t.Fatal("content hash not recorded")
	}
}

func TestIdentifierUntitledMatchFallsBackToFileName(t *testing.T) {
	recognizer := &scriptedRecognizer{responses: []recognizerStep{
		{song: &audd.Song{Artist: "Radiohead", Title: ""}},
	}}
	ident, store, inputDir := newTestIdentifier(t, recognizer)
	item := newItem(t, store, inputDir)

	if err := ident.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Title != "song" {
		t.Fatalf("title = %q, want source base name", item.Title)
	}
}

func TestIdentifierCallDelaySpacesAttempts(t *testing.T) {
	const delay = 50 * time.Millisecond
	recognizer := &scriptedRecognizer{responses: []recognizerStep{
		{err: audd.ErrTransient},
		{err: audd.ErrTransient},
		{song: &audd.Song{Artist: "A", Title: "T"}},
	}}
	cfg := testsupport.NewConfig(t)
	cfg.Identification.CallDelaySeconds = delay.Seconds()
	store := testsupport.MustOpenStore(t, cfg)
	ident := NewIdentifierWithDependencies(cfg, store, media.NewCatalog(), nil, recognizer, stubSampler{dir: t.TempDir()})
	ident.retryBackoff = time.Millisecond
	item := newItem(t, store, cfg.Paths.InputDir)

	start := time.Now()
	if err := ident.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if recognizer.calls != 3 {
		t.Fatalf("calls = %d", recognizer.calls)
	}
	if elapsed, want := time.Since(start), 2*delay; elapsed < want {
		t.Fatalf("three gated calls finished in %v, want at least %v", elapsed, want)
	}
}

func TestIdentifierRetriesTransientFailures(t *testing.T) {
	recognizer := &scriptedRecognizer{responses: []recognizerStep{
		{err: audd.ErrTransient},
		{err: audd.ErrRateLimited},
		{song: &audd.Song{Artist: "A", Title: "T"}},
	}}
	ident, store, inputDir := newTestIdentifier(t, recognizer)
	item := newItem(t, store, inputDir)

	if err := ident.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if recognizer.calls != 3 {
		t.Fatalf("calls = %d", recognizer.calls)
	}
}

func TestIdentifierStopsAfterMaxAttempts(t *testing.T) {
	recognizer := &scriptedRecognizer{responses: []recognizerStep{
		{err: audd.ErrTransient},
	}}
	ident, store, inputDir := newTestIdentifier(t, recognizer)
	item := newItem(t, store, inputDir)

	err := ident.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if recognizer.calls != ident.cfg.Identification.MaxAttempts {
		t.Fatalf("calls = %d, want %d", recognizer.calls, ident.cfg.Identification.MaxAttempts)
	}
}

func TestIdentifierNoMatchDoesNotRetry(t *testing.T) {
	recognizer := &scriptedRecognizer{responses: []recognizerStep{
		{err: audd.ErrNoMatch},
	}}
	ident, store, inputDir := newTestIdentifier(t, recognizer)
	item := newItem(t, store, inputDir)

	err := ident.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrUnrecognized) {
		t.Fatalf("expected unrecognized error, got %v", err)
	}
	if recognizer.calls != 1 {
		t.Fatalf("calls = %d", recognizer.calls)
	}
}

func TestIdentifierInvalidTokenIsFatal(t *testing.T) {
	recognizer := &scriptedRecognizer{responses: []recognizerStep{
		{err: audd.ErrInvalidToken},
	}}
	ident, store, inputDir := newTestIdentifier(t, recognizer)
	item := newItem(t, store, inputDir)

	err := ident.Execute(context.Background(), item)
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if recognizer.calls != 1 {
		t.Fatalf("calls = %d", recognizer.calls)
	}
}
