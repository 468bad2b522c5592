// Package config loads, normalizes, and validates tunesort's TOML
// configuration.
package config
