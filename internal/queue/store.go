package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tunesort/internal/config"
)

// ErrOutcomeRecorded is returned when a terminal outcome would be overwritten.
var ErrOutcomeRecorded = errors.New("outcome already recorded")

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "ledger.db"))
}

// OpenPath opens the ledger database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// NewItem inserts a discovered audio file as a pending ledger row. Inserting
// the same source path twice within one run is an error; a file is processed
// at most once.
func (s *Store) NewItem(ctx context.Context, runID, sourcePath, format string, sizeBytes int64, dryRun bool) (*Item, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO ledger_items (
            run_id, source_path, format, size_bytes, status, dry_run, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		sourcePath,
		format,
		sizeBytes,
		StatusPending,
		boolToInt(dryRun),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ledger item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a ledger item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM ledger_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing ledger item. The terminal outcome is
// only written through RecordOutcome.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE ledger_items
         SET format = ?, size_bytes = ?, duration_seconds = ?, content_hash = ?,
             status = ?, artist = ?, album = ?, title = ?, score = ?,
             destination_path = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.Format),
		item.SizeBytes,
		item.DurationSeconds,
		nullableString(item.ContentHash),
		item.Status,
		nullableString(item.Artist),
		nullableString(item.Album),
		nullableString(item.Title),
		item.Score,
		nullableString(item.DestinationPath),
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// RecordOutcome writes the terminal outcome for an item exactly once.
// Returns ErrOutcomeRecorded when an outcome already exists.
func (s *Store) RecordOutcome(ctx context.Context, item *Item, outcome Outcome, errorMessage string) error {
	if item == nil {
		return errors.New("item is nil")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ledger_items
         SET outcome = ?, status = ?, error_message = ?, destination_path = ?, updated_at = ?
         WHERE id = ? AND outcome IS NULL`,
		string(outcome),
		outcome.TerminalStatus(),
		nullableString(errorMessage),
		nullableString(item.DestinationPath),
		now.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %d: %w", item.ID, ErrOutcomeRecorded)
	}
	item.Outcome = outcome
	item.Status = outcome.TerminalStatus()
	item.ErrorMessage = errorMessage
	item.UpdatedAt = now
	return nil
}

// NextPending returns the oldest pending item for a run, or nil when drained.
func (s *Store) NextPending(ctx context.Context, runID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM ledger_items WHERE run_id = ? AND status = ? ORDER BY id LIMIT 1`,
		runID,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return item, nil
}

// ItemsByRun returns all ledger items for a run in insertion order.
func (s *Store) ItemsByRun(ctx context.Context, runID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM ledger_items WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns ledger items across all runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM ledger_items ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Summarize folds the run's ledger rows into aggregate counts.
func (s *Store) Summarize(ctx context.Context, runID string) (RunSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT outcome, COUNT(1) FROM ledger_items WHERE run_id = ? GROUP BY outcome`,
		runID,
	)
	if err != nil {
		return RunSummary{}, fmt.Errorf("summarize run: %w", err)
	}
	defer rows.Close()

	summary := RunSummary{}
	for rows.Next() {
		var outcome sql.NullString
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return RunSummary{}, err
		}
		summary.Total += count
		switch Outcome(outcome.String) {
		case OutcomeOrganized:
			summary.Organized += count
		case OutcomeDuplicateDiscarded:
			summary.Duplicates += count
		case OutcomeValidationFailed, OutcomeIdentificationFailed, OutcomeMoveFailed:
			summary.Failed += count
		}
	}
	return summary, rows.Err()
}

// Clear removes all ledger items, returning the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM ledger_items`)
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	return res.RowsAffected()
}

const itemColumns = "id, run_id, source_path, format, size_bytes, duration_seconds, content_hash, status, artist, album, title, score, destination_path, outcome, error_message, dry_run, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id          int64
		runID       string
		sourcePath  string
		format      sql.NullString
		sizeBytes   int64
		duration    float64
		contentHash sql.NullString
		statusStr   string
		artist      sql.NullString
		album       sql.NullString
		title       sql.NullString
		score       float64
		destination sql.NullString
		outcome     sql.NullString
		errMessage  sql.NullString
		dryRun      int
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&sourcePath,
		&format,
		&sizeBytes,
		&duration,
		&contentHash,
		&statusStr,
		&artist,
		&album,
		&title,
		&score,
		&destination,
		&outcome,
		&errMessage,
		&dryRun,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		RunID:           runID,
		SourcePath:      sourcePath,
		Format:          format.String,
		SizeBytes:       sizeBytes,
		DurationSeconds: duration,
		ContentHash:     contentHash.String,
		Status:          Status(statusStr),
		Artist:          artist.String,
		Album:           album.String,
		Title:           title.String,
		Score:           score,
		DestinationPath: destination.String,
		Outcome:         Outcome(outcome.String),
		ErrorMessage:    errMessage.String,
		DryRun:          dryRun != 0,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
