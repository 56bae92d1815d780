// Package model defines the domain types and value objects for the
// overlay-export CLI.
//
// This package contains pure data structures with no external dependencies.
// Step ranges and step specifiers are the parsed form of Beamer overlay
// annotations found in Inkscape layer labels. They are transient: every run
// reparses the labels of the input document, there is no persistent state.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
