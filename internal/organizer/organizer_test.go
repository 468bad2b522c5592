package organizer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tunesort/internal/config"
	"tunesort/internal/media"
	"tunesort/internal/organizer"
	"tunesort/internal/queue"
	"tunesort/internal/services"
	"tunesort/internal/testsupport"
)

func newOrganizer(t *testing.T) (*organizer.Organizer, *queue.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	o := organizer.NewOrganizer(cfg, store, media.NewCatalog(), nil)
	return o, store, cfg
}

func identifiedItem(t *testing.T, store *queue.Store, cfg *config.Config, name string, size int64) *queue.Item {
	t.Helper()
	source := filepath.Join(cfg.Paths.InputDir, name)
	testsupport.WriteFile(t, source, size)
	item := testsupport.NewItem(t, store, "run-1", source)
	item.Artist = "Massive Attack"
	item.Album = "Mezzanine"
	item.Title = "Teardrop"
	item.Status = queue.StatusIdentified
	return item
}

func TestOrganizerMovesIntoArtistAlbumLayout(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 4096)

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := filepath.Join(cfg.Paths.LibraryDir, "Massive Attack", "Mezzanine", "Teardrop.mp3")
	if item.DestinationPath != want {
		t.Fatalf("destination = %q, want %q", item.DestinationPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if _, err := os.Stat(item.SourcePath); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", item.Status)
	}
}

func TestOrganizerRoutesAlbumlessToSingleSongs(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.flac", 4096)
	item.Album = ""

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "Massive Attack", "Single Songs", "Teardrop.flac")
	if item.DestinationPath != want {
		t.Fatalf("destination = %q, want %q", item.DestinationPath, want)
	}
}

func TestOrganizerDiscardsIdenticalDuplicate(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 4096)

	// Same size and byte pattern as the incoming file.
	destination := filepath.Join(cfg.Paths.LibraryDir, "Massive Attack", "Mezzanine", "Teardrop.mp3")
	testsupport.WriteFile(t, destination, 4096)

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Status != queue.StatusDuplicate {
		t.Fatalf("status = %s", item.Status)
	}
	if _, err := os.Stat(item.SourcePath); !os.IsNotExist(err) {
		t.Fatal("duplicate source should be removed")
	}
	if _, err := os.Stat(destination); err != nil {
		t.Fatalf("existing library file disturbed: %v", err)
	}
}

func TestOrganizerLargerIncomingReplacesExisting(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 8192)

	destination := filepath.Join(cfg.Paths.LibraryDir, "Massive Attack", "Mezzanine", "Teardrop.mp3")
	testsupport.WriteFile(t, destination, 4096)

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", item.Status)
	}
	info, err := os.Stat(destination)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if info.Size() != 8192 {
		t.Fatalf("destination size = %d, want 8192", info.Size())
	}
}

func TestOrganizerSmallerIncomingIsDiscarded(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 2048)

	destination := filepath.Join(cfg.Paths.LibraryDir, "Massive Attack", "Mezzanine", "Teardrop.mp3")
	testsupport.WriteFile(t, destination, 4096)

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Status != queue.StatusDuplicate {
		t.Fatalf("status = %s", item.Status)
	}
	info, err := os.Stat(destination)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if info.Size() != 4096 {
		t.Fatalf("destination size = %d, want 4096", info.Size())
	}
}

func TestOrganizerDryRunLeavesFilesystemUntouched(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 4096)
	item.DryRun = true

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(item.SourcePath); err != nil {
		t.Fatalf("source should be untouched: %v", err)
	}
	if _, err := os.Stat(cfg.Paths.LibraryDir); !os.IsNotExist(err) {
		t.Fatal("library directory should not be created in dry run")
	}
	if item.DestinationPath == "" {
		t.Fatal("dry run should still resolve the destination")
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", item.Status)
	}
}

func TestOrganizerDryRunRecordsSimulatedDuplicate(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 4096)
	item.DryRun = true

	// Same size and byte pattern as the incoming file.
	destination := filepath.Join(cfg.Paths.LibraryDir, "Massive Attack", "Mezzanine", "Teardrop.mp3")
	testsupport.WriteFile(t, destination, 4096)

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Status != queue.StatusDuplicate {
		t.Fatalf("status = %s, want %s", item.Status, queue.StatusDuplicate)
	}
	if item.ErrorMessage == "" {
		t.Fatal("simulated discard should record the reason")
	}
	if _, err := os.Stat(item.SourcePath); err != nil {
		t.Fatalf("source should be untouched: %v", err)
	}
	if _, err := os.Stat(destination); err != nil {
		t.Fatalf("existing library file disturbed: %v", err)
	}
}

func TestOrganizerDryRunSimulatesReplaceWithoutMutation(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 8192)
	item.DryRun = true

	destination := filepath.Join(cfg.Paths.LibraryDir, "Massive Attack", "Mezzanine", "Teardrop.mp3")
	testsupport.WriteFile(t, destination, 4096)

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", item.Status)
	}
	info, err := os.Stat(destination)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if info.Size() != 4096 {
		t.Fatalf("existing library file mutated: size = %d", info.Size())
	}
	if _, err := os.Stat(item.SourcePath); err != nil {
		t.Fatalf("source should be untouched: %v", err)
	}
}

func TestOrganizerIOFailuresCarryMoveMarker(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 4096)

	// A regular file where the artist directory belongs makes every
	// destination operation under it fail.
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.LibraryDir, "Massive Attack"), 16)

	err := o.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, services.ErrMove) {
		t.Fatalf("error = %v, want move marker", err)
	}
}

func TestOrganizerUntitledItemKeepsSourceName(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "basement tape 03.mp3", 4096)
	item.Title = ""

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "Massive Attack", "Mezzanine", "basement tape 03.mp3")
	if item.DestinationPath != want {
		t.Fatalf("destination = %q, want %q", item.DestinationPath, want)
	}
}

func TestOrganizerSanitizesMetadataSegments(t *testing.T) {
	o, store, cfg := newOrganizer(t)
	item := identifiedItem(t, store, cfg, "track.mp3", 4096)
	item.Artist = "AC/DC"
	item.Album = "Back in Black (Remastered)"
	item.Title = "Hells Bells?"

	if err := o.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "AC_DC", "Back in Black", "Hells Bells.mp3")
	if item.DestinationPath != want {
		t.Fatalf("destination = %q, want %q", item.DestinationPath, want)
	}
}
