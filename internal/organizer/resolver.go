package organizer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"tunesort/internal/media"
)

// Decision is the outcome of comparing an incoming file against an existing
// library file at the same destination.
type Decision int

const (
	// DecisionMove means the destination is free; move the incoming file.
	DecisionMove Decision = iota
	// DecisionReplace means the incoming file wins; the existing file is
	// removed first.
	DecisionReplace
	// DecisionDiscard means the existing file wins; the incoming file is
	// removed.
	DecisionDiscard
)

func (d Decision) String() string {
	switch d {
	case DecisionMove:
		return "move"
	case DecisionReplace:
		return "replace"
	case DecisionDiscard:
		return "discard"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Resolution carries the decision plus a human-readable reason for the log
// and ledger.
type Resolution struct {
	Decision Decision
	Reason   string
}

// Resolve compares the incoming file against whatever occupies destination.
// Identical content discards the incoming copy; differing content keeps the
// strictly larger file. Equal sizes with differing content keep the existing
// file, since neither version can be called better.
func Resolve(incoming *media.AudioFile, destination string) (Resolution, error) {
	existing, err := os.Stat(destination)
	if errors.Is(err, fs.ErrNotExist) {
		return Resolution{Decision: DecisionMove}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("stat destination: %w", err)
	}

	incomingHash, err := incoming.Hash()
	if err != nil {
		return Resolution{}, fmt.Errorf("hash incoming: %w", err)
	}
	existingHash, err := media.HashFile(destination)
	if err != nil {
		return Resolution{}, fmt.Errorf("hash existing: %w", err)
	}

	if incomingHash == existingHash {
		return Resolution{
			Decision: DecisionDiscard,
			Reason:   "identical file already in library",
		}, nil
	}
	if incoming.Size > existing.Size() {
		return Resolution{
			Decision: DecisionReplace,
			Reason:   fmt.Sprintf("incoming file larger (%d > %d bytes)", incoming.Size, existing.Size()),
		}, nil
	}
	if incoming.Size == existing.Size() {
		return Resolution{
			Decision: DecisionDiscard,
			Reason:   "same size but different content; keeping existing",
		}, nil
	}
	return Resolution{
		Decision: DecisionDiscard,
		Reason:   fmt.Sprintf("existing file larger (%d > %d bytes)", existing.Size(), incoming.Size),
	}, nil
}
