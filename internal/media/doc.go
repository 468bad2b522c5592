// Package media models discovered audio files and wraps the external decode
// capability (ffprobe/ffmpeg) used for validation probing and fingerprint
// clip extraction.
package media
