// Package metadata is a small key/value store for engine settings that must
// survive restarts: the active master key id and per-target sync times.
package metadata
