// Package logging configures slog output for tunesort. It offers a console
// handler for interactive runs and a JSON handler for machine-readable logs,
// plus context-derived attribute enrichment shared by all stages.
package logging
