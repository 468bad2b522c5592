// Package main hosts the tunesort CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// organization runs, one-off identification requests, ledger maintenance,
// and configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
package main
