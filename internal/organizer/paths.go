package organizer

import (
	"path/filepath"
	"strings"

	"tunesort/internal/config"
	"tunesort/internal/queue"
	"tunesort/internal/textutil"
)

// DestinationFor resolves the library location for an identified item:
// library_dir/<Artist>/<Album>/<Title>.<ext>, with albumless songs routed
// into the configured single-songs directory. Every segment is sanitized.
// Items without a title keep their original file name.
func DestinationFor(cfg *config.Config, item *queue.Item) string {
	base := filepath.Base(item.SourcePath)
	artist := textutil.SanitizeSegment(fallback(item.Artist, "Unknown Artist"))
	title := textutil.SanitizeSegment(fallback(item.Title, strings.TrimSuffix(base, filepath.Ext(base))))

	albumDir := cfg.Organizer.SingleSongsDir
	if strings.TrimSpace(item.Album) != "" {
		albumDir = textutil.SanitizeSegment(item.Album)
	}

	ext := filepath.Ext(item.SourcePath)
	return filepath.Join(cfg.Paths.LibraryDir, artist, albumDir, title+ext)
}

func fallback(value, alt string) string {
	if strings.TrimSpace(value) == "" {
		return alt
	}
	return value
}
