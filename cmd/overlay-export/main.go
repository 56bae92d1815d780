// Package main is the entry point for the overlay-export CLI.
//
// The binary exports the layers of an Inkscape drawing as one file per
// Beamer overlay step. It delegates all functionality to the internal/cli
// package, which defines the cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags.
package main

import (
	"github.com/mmr-tortoise/overlay-export/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
