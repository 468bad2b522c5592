package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ProbeResult carries the subset of ffprobe output the pipeline needs.
type ProbeResult struct {
	FormatName string
	Duration   time.Duration
}

// Prober reports container format and duration for an audio file.
type Prober interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

// FFprobe shells out to the ffprobe binary for media inspection.
type FFprobe struct {
	binary string
}

// NewFFprobe constructs a prober around the named binary.
func NewFFprobe(binary string) *FFprobe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &FFprobe{binary: binary}
}

var _ Prober = (*FFprobe)(nil)

type ffprobePayload struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe and parses the format block. A non-zero exit or an
// unparseable duration means the file cannot be decoded.
func (p *FFprobe) Probe(ctx context.Context, path string) (ProbeResult, error) {
	cmd := exec.CommandContext(
		ctx,
		p.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return ProbeResult{}, fmt.Errorf("ffprobe %s: %s: %w", path, detail, err)
		}
		return ProbeResult{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var payload ffprobePayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return ProbeResult{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("parse duration %q: %w", payload.Format.Duration, err)
	}
	return ProbeResult{
		FormatName: payload.Format.FormatName,
		Duration:   time.Duration(seconds * float64(time.Second)),
	}, nil
}
