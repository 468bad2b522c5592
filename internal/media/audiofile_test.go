package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatFromPath(t *testing.T) {
	cases := map[string]string{
		"/music/a.MP3":     "mp3",
		"/music/b.flac":    "flac",
		"/music/noext":     "",
		"/music/tar.gz":    "gz",
		"/music/c.d/e.ogg": "ogg",
	}
	for path, want := range cases {
		if got := FormatFromPath(path); got != want {
			t.Fatalf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestIsSupportedPath(t *testing.T) {
	if !IsSupportedPath("/in/song.M4A") {
		t.Fatal("m4a should be supported")
	}
	if IsSupportedPath("/in/cover.jpg") {
		t.Fatal("jpg should not be supported")
	}
}

func TestHashIsCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	file := NewAudioFile(path, 8)
	first, err := file.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	// Mutate the underlying file; the cached hash must not change.
	if err := os.WriteFile(path, []byte("mutated!"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	second, err := file.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first != second {
		t.Fatalf("hash recomputed: %q != %q", first, second)
	}
}

func TestCatalogReturnsSameRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	catalog := NewCatalog()
	a, err := catalog.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	b, err := catalog.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if a != b {
		t.Fatal("expected cached record")
	}
	if a.Size != 3 || a.Format != "mp3" {
		t.Fatalf("unexpected record %+v", a)
	}

	catalog.Forget(path)
	c, err := catalog.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after Forget: %v", err)
	}
	if c == a {
		t.Fatal("expected fresh record after Forget")
	}
}
