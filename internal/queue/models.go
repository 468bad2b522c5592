package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a ledger item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusValidating  Status = "validating"
	StatusValidated   Status = "validated"
	StatusIdentifying Status = "identifying"
	StatusIdentified  Status = "identified"
	StatusOrganizing  Status = "organizing"
	StatusCompleted   Status = "completed"
	StatusDuplicate   Status = "duplicate"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusValidating,
	StatusValidated,
	StatusIdentifying,
	StatusIdentified,
	StatusOrganizing,
	StatusCompleted,
	StatusDuplicate,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusValidating:  {},
	StatusIdentifying: {},
	StatusOrganizing:  {},
}

// Outcome is the terminal result recorded exactly once per ledger item.
type Outcome string

const (
	OutcomeOrganized            Outcome = "organized"
	OutcomeDuplicateDiscarded   Outcome = "duplicate_discarded"
	OutcomeValidationFailed     Outcome = "validation_failed"
	OutcomeIdentificationFailed Outcome = "identification_failed"
	OutcomeMoveFailed           Outcome = "move_failed"
)

// TerminalStatus maps an outcome to the ledger status it implies.
func (o Outcome) TerminalStatus() Status {
	switch o {
	case OutcomeOrganized:
		return StatusCompleted
	case OutcomeDuplicateDiscarded:
		return StatusDuplicate
	default:
		return StatusFailed
	}
}

// Item represents one discovered audio file persisted in SQLite.
type Item struct {
	ID              int64
	RunID           string
	SourcePath      string
	Format          string
	SizeBytes       int64
	DurationSeconds float64
	ContentHash     string
	Status          Status
	Artist          string
	Album           string
	Title           string
	Score           float64
	DestinationPath string
	Outcome         Outcome
	ErrorMessage    string
	DryRun          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsTerminal reports whether the item has reached a final state.
func (i Item) IsTerminal() bool {
	return i.Outcome != ""
}

// RunSummary aggregates ledger counts for one run, derived by folding items.
type RunSummary struct {
	Total      int
	Organized  int
	Failed     int
	Duplicates int
}

// SuccessRate returns organized/total as a percentage, 0 for an empty run.
func (s RunSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Organized) / float64(s.Total) * 100
}
