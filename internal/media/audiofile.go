package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SupportedExtensions lists the audio container extensions tunesort scans
// for, without the leading dot.
var SupportedExtensions = map[string]struct{}{
	"mp3":  {},
	"wav":  {},
	"flac": {},
	"m4a":  {},
	"aac":  {},
	"ogg":  {},
	"wma":  {},
}

// FormatFromPath returns the lowercased extension without the dot, or "".
func FormatFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return strings.TrimPrefix(ext, ".")
}

// IsSupportedPath reports whether the path carries a supported audio extension.
func IsSupportedPath(path string) bool {
	_, ok := SupportedExtensions[FormatFromPath(path)]
	return ok
}

// AudioFile describes one discovered audio file. The content hash is computed
// lazily on first use and cached; everything else is fixed at discovery.
type AudioFile struct {
	Path     string
	Format   string
	Size     int64
	Duration time.Duration

	hash string
}

// NewAudioFile builds an AudioFile from a discovered path and its stat size.
func NewAudioFile(path string, size int64) *AudioFile {
	return &AudioFile{
		Path:   path,
		Format: FormatFromPath(path),
		Size:   size,
	}
}

// Hash returns the SHA-256 content hash, computing and caching it on first
// call.
func (f *AudioFile) Hash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	sum, err := HashFile(f.Path)
	if err != nil {
		return "", err
	}
	f.hash = sum
	return f.hash, nil
}

// HashFile computes the SHA-256 hex digest of an arbitrary file.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Catalog caches AudioFile records by path so the hash of a file is computed
// at most once per run, no matter how many stages need it.
type Catalog struct {
	files map[string]*AudioFile
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{files: make(map[string]*AudioFile)}
}

// Acquire returns the cached record for path, creating one (with a fresh
// stat) when absent.
func (c *Catalog) Acquire(path string) (*AudioFile, error) {
	if file, ok := c.files[path]; ok {
		return file, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	file := NewAudioFile(path, info.Size())
	c.files[path] = file
	return file, nil
}

// Forget drops the cached record for path (used after a file is moved away).
func (c *Catalog) Forget(path string) {
	delete(c.files, path)
}
