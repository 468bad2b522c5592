// Package textutil provides text normalization helpers used when building
// library directory and file names from identification metadata.
package textutil
