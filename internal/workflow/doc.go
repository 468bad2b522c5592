// Package workflow drives one organization run: it discovers audio files,
// enqueues them as ledger items, and drains the queue sequentially through
// the validation, identification, and organization stages. Files are
// processed one at a time; the recognition service's rate contract rules out
// useful parallelism.
package workflow
