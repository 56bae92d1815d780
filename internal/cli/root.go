// Package cli implements the cobra-based CLI commands for overlay-export.
//
// Each subcommand (export, plan, clean) is defined in its own file within
// this package. This file defines the root command that serves as the
// parent for all subcommands and handles global flags and exit codes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/overlay-export/internal/logging"
	"github.com/mmr-tortoise/overlay-export/internal/model"
	"github.com/mmr-tortoise/overlay-export/internal/overlay"
)

// Global flag variables shared across all subcommands. They are bound to
// persistent flags on the root command.
var (
	// jsonOutput switches command results and errors to JSON.
	jsonOutput bool

	// verbose lowers the log level to Debug.
	verbose bool
)

// logger is the process-wide structured logger. It is replaced in
// PersistentPreRun once the --verbose flag is known.
var logger = logging.Discard()

// Version, Commit and Date are set at build time via ldflags and injected
// from the main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "overlay-export",
		Short: "Export Inkscape layers as Beamer overlay steps",
		Long: `overlay-export turns one Inkscape drawing into a sequence of files, one per
overlay step, for use with \includegraphics<N> in Beamer slides.

Layers whose label contains a step specifier such as "fig[-3,5-]" are shown
only on the listed steps. The number of steps is the largest finite step
number found in any label.`,

		// Errors and usage are printed by Execute, as text or JSON.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(cmd.ErrOrStderr(), verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewPlanCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code carried by the
// returned error. An interrupt cancels the command context, so running
// conversions stop and their containers are removed.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		code, message, underlying := classifyError(err)
		printError(os.Stderr, message, underlying)
		os.Exit(int(code))
	}
}

// classifyError maps err to an exit code and the message to print. A
// CLIError deeper in the chain still decides the code, but the full chain
// is printed so the context added on the way up is not lost.
func classifyError(err error) (model.ExitCode, string, error) {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		if cliErr == err {
			return cliErr.Code, cliErr.Message, cliErr.Err
		}
		return cliErr.Code, err.Error(), nil
	}

	var labelErr *overlay.LabelError
	if errors.As(err, &labelErr) {
		return model.ExitMalformedLabel, err.Error(), nil
	}

	return model.ExitGeneralError, err.Error(), nil
}

// printError outputs an error message in the appropriate format (JSON or
// text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// stdout is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog records a debug message, shown only in verbose mode.
func VerboseLog(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to marshal JSON output", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
