// clean.go implements the "overlay-export clean" command.
//
// Converter containers are removed as soon as their conversion finishes.
// A run killed before that point leaves them behind; clean finds them by
// their management label and force-removes them.
package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/overlay-export/internal/docker"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// dryRun lists the containers without removing them.
	dryRun bool

	// olderThan restricts the removal to containers created at least this
	// long ago. Zero selects every managed container.
	olderThan time.Duration
}

// cleanEntryJSON is the JSON output structure for one container.
type cleanEntryJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	Input     string `json:"input,omitempty"`
	Step      int    `json:"step"`
	CreatedAt string `json:"createdAt,omitempty"`
	Removed   bool   `json:"removed"`
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover converter containers",
		Long: `Remove converter containers left behind by interrupted docker-mode exports.

Only containers labelled overlay-export.managed-by=overlay-export are
considered.

Examples:
  overlay-export clean
  overlay-export clean --dry-run
  overlay-export clean --older-than 1h`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List the containers without removing them")
	cmd.Flags().DurationVar(&flags.olderThan, "older-than", 0, "Only remove containers created at least this long ago")

	return cmd
}

// runClean is the main logic function for the clean command.
func runClean(ctx context.Context, out io.Writer, flags *cleanFlags) error {
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}
	VerboseLog("Connected to Docker daemon")

	containers, err := docker.ListManagedContainers(ctx, cli)
	if err != nil {
		return err
	}
	stale := selectStale(containers, flags.olderThan, time.Now())
	VerboseLog("Found %d managed containers, %d selected", len(containers), len(stale))

	entries := make([]cleanEntryJSON, 0, len(stale))
	var firstErr error
	for _, c := range stale {
		entry := newCleanEntry(c)
		if !flags.dryRun {
			// A container that cannot be removed does not stop the others.
			if err := docker.RemoveContainer(ctx, cli, c.ID, true); err != nil {
				logger.Warn("cannot remove container", "id", entry.ID, "err", err)
				if firstErr == nil {
					firstErr = err
				}
			} else {
				entry.Removed = true
			}
		}
		entries = append(entries, entry)
	}

	if IsJSONOutput() {
		if err := printJSON(out, struct {
			Containers []cleanEntryJSON `json:"containers"`
		}{entries}); err != nil {
			return err
		}
	} else {
		printCleanResultText(out, entries, flags.dryRun)
	}
	return firstErr
}

// selectStale returns the containers created at least olderThan before
// now, oldest first. Containers without a creation label are always
// selected: their age is unknown.
func selectStale(containers []docker.ContainerInfo, olderThan time.Duration, now time.Time) []docker.ContainerInfo {
	selected := make([]docker.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		if olderThan > 0 && c.Job != nil && !c.Job.CreatedAt.IsZero() &&
			now.Sub(c.Job.CreatedAt) < olderThan {
			continue
		}
		selected = append(selected, c)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return createdAt(selected[i]).Before(createdAt(selected[j]))
	})
	return selected
}

func createdAt(c docker.ContainerInfo) time.Time {
	if c.Job == nil {
		return time.Time{}
	}
	return c.Job.CreatedAt
}

func newCleanEntry(c docker.ContainerInfo) cleanEntryJSON {
	entry := cleanEntryJSON{
		ID:    docker.ShortID(c.ID),
		Name:  c.Name,
		State: c.State,
	}
	if c.Job != nil {
		entry.Input = c.Job.Input
		entry.Step = c.Job.Step
		if !c.Job.CreatedAt.IsZero() {
			entry.CreatedAt = c.Job.CreatedAt.Format(time.RFC3339)
		}
	}
	return entry
}

// printCleanResultText outputs the processed containers as a table.
func printCleanResultText(w io.Writer, entries []cleanEntryJSON, dryRun bool) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No converter containers found.")
		return
	}

	fmt.Fprintf(w, "%-14s %-10s %-6s %-10s %s\n", "CONTAINER", "STATE", "STEP", "ACTION", "INPUT")
	for _, e := range entries {
		action := "removed"
		switch {
		case dryRun:
			action = "kept"
		case !e.Removed:
			action = "failed"
		}
		input := e.Input
		if input == "" {
			input = "-"
		}
		fmt.Fprintf(w, "%-14s %-10s %-6d %-10s %s\n", e.ID, e.State, e.Step, action, input)
	}
}
