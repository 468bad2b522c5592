// Package audd wraps the AudD music recognition HTTP API.
package audd
