package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveFileCreatesDestinationDirectory(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "song.mp3")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	dst := filepath.Join(base, "Artist", "Album", "song.mp3")
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected destination content %q", data)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, err=%v", err)
	}
}

func TestCopyFilePreservesContent(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "in.flac")
	if err := os.WriteFile(src, []byte("flac-bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	dst := filepath.Join(base, "out.flac")
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(data) != "flac-bytes" {
		t.Fatalf("unexpected copy content %q", data)
	}
}

func TestWriteFileAtomicReplacesExisting(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "results.json")
	if err := WriteFileAtomic(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("new"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "new" {
		t.Fatalf("unexpected content %q", data)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no temp file leftovers, found %d entries", len(entries))
	}
}
