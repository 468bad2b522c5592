package media

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ClipWindow is the slice of an audio file submitted for fingerprinting.
type ClipWindow struct {
	Offset   time.Duration
	Duration time.Duration
}

// safe zone: skip intros and outros, which fingerprint poorly.
const (
	safeZoneStartFraction = 0.15
	safeZoneEndFraction   = 0.85
)

// ChooseClipWindow picks where to cut the fingerprint clip. Files shorter
// than the clip use the whole file. When the safe zone cannot hold a full
// clip the window is centered on the middle of the track; otherwise the
// offset is random within the safe zone.
func ChooseClipWindow(total, clip time.Duration, rng *rand.Rand) ClipWindow {
	if total < clip {
		return ClipWindow{Offset: 0, Duration: total}
	}
	safeStart := time.Duration(float64(total) * safeZoneStartFraction)
	safeEnd := time.Duration(float64(total) * safeZoneEndFraction)
	if safeEnd-safeStart < clip {
		offset := total/2 - clip/2
		if offset < 0 {
			offset = 0
		}
		return ClipWindow{Offset: offset, Duration: clip}
	}
	span := safeEnd - clip - safeStart
	offset := safeStart
	if span > 0 {
		offset += time.Duration(rng.Int63n(int64(span) + 1))
	}
	return ClipWindow{Offset: offset, Duration: clip}
}

// Sampler extracts a clip from an audio file into a temporary file.
type Sampler interface {
	Sample(ctx context.Context, path string, window ClipWindow) (string, error)
}

// FFmpegSampler shells out to ffmpeg to cut and transcode the clip.
type FFmpegSampler struct {
	binary string
}

// NewFFmpegSampler constructs a sampler around the named binary.
func NewFFmpegSampler(binary string) *FFmpegSampler {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegSampler{binary: binary}
}

var _ Sampler = (*FFmpegSampler)(nil)

// Sample writes the clip as a 128k MP3 temp file and returns its path. The
// caller removes the file when identification finishes.
func (s *FFmpegSampler) Sample(ctx context.Context, path string, window ClipWindow) (string, error) {
	tmp, err := os.CreateTemp("", "tunesort-clip-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create clip temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close clip temp file: %w", err)
	}

	cmd := exec.CommandContext(
		ctx,
		s.binary,
		"-v", "error",
		"-y",
		"-ss", formatSeconds(window.Offset),
		"-t", formatSeconds(window.Duration),
		"-i", path,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", "128k",
		tmpName,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmpName)
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("ffmpeg clip %s: %s: %w", path, detail, err)
		}
		return "", fmt.Errorf("ffmpeg clip %s: %w", path, err)
	}
	return tmpName, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
