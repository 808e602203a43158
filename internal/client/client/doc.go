// Package client assembles the note engine for one profile.
//
// Open turns a config.Config into a ready Engine: it opens the SQLite
// database, applies the embedded goose migrations, builds the item registry
// and wires every service on top of it. Sync targets are built on demand by
// (*Engine).Target.
//
// # Error Handling
//
// ErrUnknownTarget is returned for target ids absent from the config.
// Errors from the services pass through wrapped, so the sentinels in
// package common still match with errors.Is.
package client
