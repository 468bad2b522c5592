package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"tunesort/internal/fileutil"
	"tunesort/internal/queue"
)

// Filename is the results document written at the library root after a run.
const Filename = "organization_results.json"

// Stats aggregates per-run outcome counts.
type Stats struct {
	Total       int     `json:"total"`
	Organized   int     `json:"organized"`
	Failed      int     `json:"failed"`
	Duplicates  int     `json:"duplicates"`
	SuccessRate float64 `json:"success_rate"`
}

// FileEntry is one ledger row rendered for the results document.
type FileEntry struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path,omitempty"`
	Artist          string `json:"artist,omitempty"`
	Title           string `json:"title,omitempty"`
	Album           string `json:"album,omitempty"`
	Outcome         string `json:"outcome"`
	Error           string `json:"error,omitempty"`
}

// Document is the persisted run report.
type Document struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	DryRun      bool        `json:"dry_run"`
	Stats       Stats       `json:"stats"`
	Organized   []FileEntry `json:"organized_files"`
	Duplicates  []FileEntry `json:"duplicate_files"`
	Failed      []FileEntry `json:"failed_files"`
}

// Build folds a run's ledger rows into a results document. Items without a
// recorded outcome (possible after a fatal abort) count as failed.
func Build(runID string, items []*queue.Item) Document {
	doc := Document{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
	}
	for _, item := range items {
		entry := FileEntry{
			SourcePath:      item.SourcePath,
			DestinationPath: item.DestinationPath,
			Artist:          item.Artist,
			Title:           item.Title,
			Album:           item.Album,
			Outcome:         string(item.Outcome),
			Error:           item.ErrorMessage,
		}
		doc.Stats.Total++
		if item.DryRun {
			doc.DryRun = true
		}
		switch item.Outcome {
		case queue.OutcomeOrganized:
			doc.Stats.Organized++
			doc.Organized = append(doc.Organized, entry)
		case queue.OutcomeDuplicateDiscarded:
			doc.Stats.Duplicates++
			doc.Duplicates = append(doc.Duplicates, entry)
		default:
			if entry.Outcome == "" {
				entry.Outcome = "aborted"
			}
			doc.Stats.Failed++
			doc.Failed = append(doc.Failed, entry)
		}
	}
	if doc.Stats.Total > 0 {
		doc.Stats.SuccessRate = float64(doc.Stats.Organized) / float64(doc.Stats.Total) * 100
	}
	return doc
}

// Path returns the report location under the library root.
func Path(libraryDir string) string {
	return filepath.Join(libraryDir, Filename)
}

// Write persists the document atomically so a crash never leaves a partial
// report behind.
func Write(path string, doc Document) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	payload = append(payload, '\n')
	if err := fileutil.WriteFileAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
