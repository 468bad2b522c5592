// Package services defines the shared error taxonomy and context plumbing
// used across pipeline stages. Stage code wraps failures with a sentinel
// marker; the workflow engine classifies wrapped errors into terminal
// outcomes and decides whether a failure is per-file or run-fatal.
package services
