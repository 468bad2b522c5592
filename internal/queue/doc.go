// Package queue persists the per-file result ledger in SQLite. Every
// discovered audio file becomes one ledger row that moves forward through the
// pipeline statuses and receives exactly one terminal outcome; the run report
// and summary statistics are derived by folding these rows.
package queue
