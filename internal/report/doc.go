// Package report renders a run's ledger rows into the
// organization_results.json document and end-of-run summary counts.
package report
