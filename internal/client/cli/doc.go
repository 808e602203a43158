// Package cli implements the gophnotes command-line client.
//
// Every subcommand runs against one profile: the root command loads the
// configuration (file, NOTES_* environment, flags), opens the engine before
// the subcommand runs and closes it afterwards.
//
// Commands prompt for the master key password only when they need to read
// or write encrypted data.
package cli
