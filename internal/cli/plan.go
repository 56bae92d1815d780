// plan.go implements the "overlay-export plan" command, which shows the
// steps an export would produce without starting Inkscape.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/overlay-export/internal/config"
	"github.com/mmr-tortoise/overlay-export/internal/manifest"
	"github.com/mmr-tortoise/overlay-export/internal/model"
	"github.com/mmr-tortoise/overlay-export/internal/overlay"
	"github.com/mmr-tortoise/overlay-export/internal/svgdoc"
)

// NewPlanCommand creates the "plan" cobra command. It accepts the subset
// of export flags that change the plan.
func NewPlanCommand() *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "plan <svg>",
		Short: "Show the overlay steps of a drawing",
		Long: `Parse the layer labels of an Inkscape drawing and show the number of
steps and the layers visible on each step, without converting anything.

Examples:
  overlay-export plan slides.svg
  overlay-export plan --unmarked remove slides.svg
  overlay-export plan --json slides.svg`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd.OutOrStdout(), args[0], flags, cmd.Flags().Changed)
		},
	}

	cmd.Flags().StringVarP(&flags.destination, "destination", "d", "", "Output directory (default: directory of the input)")
	cmd.Flags().BoolVarP(&flags.noAreaDraw, "no-export-area-drawing", "n", false, "Export the whole page instead of the drawing bounding box")
	cmd.Flags().StringVar(&flags.format, "format", string(model.FormatPDF), "Output format: pdf, png, eps, ps, emf, wmf")
	cmd.Flags().StringVar(&flags.marker, "marker", overlay.DefaultMarker, "Token introducing a step specifier in layer labels (output names keep the -fig<N> suffix)")
	cmd.Flags().StringVar(&flags.unmarked, "unmarked", string(model.DefaultUnmarkedPolicy), "Layers without specifier: show, keep, remove")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Configuration file (default: discovered next to the input)")

	return cmd
}

// runPlan loads and analyzes the input, then prints its manifest.
func runPlan(_ context.Context, out io.Writer, input string, flags *exportFlags, changed func(string) bool) error {
	inputPath, err := filepath.Abs(input)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("invalid input path %q", input), err)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("input file %s not found", input), err)
	}

	cfg, _, err := config.Resolve(flags.configPath, inputPath)
	if err != nil {
		return err
	}
	applyExportFlags(cfg, flags, changed)
	if err := config.Join(config.Validate(cfg)); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid configuration", err)
	}

	dest := cfg.Destination
	if dest == "" {
		dest = filepath.Dir(inputPath)
	}

	doc, err := svgdoc.Load(inputPath)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("cannot read %s", input), err)
	}
	analysis, err := overlay.Analyze(doc, overlay.NewParser(cfg.Marker, logger))
	if err != nil {
		return model.WrapCLIError(model.ExitMalformedLabel, "malformed layer label", err)
	}

	m := manifest.Build(analysis, manifest.Options{
		Format:      cfg.Format,
		ExportArea:  cfg.ExportArea,
		Unmarked:    cfg.Unmarked,
		Destination: dest,
	})

	if IsJSONOutput() {
		return printJSON(out, m)
	}
	printPlanText(out, m)
	return nil
}

// printPlanText outputs the plan as two tables: layers, then steps.
func printPlanText(w io.Writer, m *manifest.Manifest) {
	name := filepath.Base(m.Source)
	if m.MaxStep == 0 {
		fmt.Fprintf(w, "%s: no overlay steps, the drawing is converted unmodified\n", name)
	} else {
		fmt.Fprintf(w, "%s: %d steps (marker %q)\n", name, m.MaxStep, m.Marker)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-30s %s\n", "LAYER", "STEPS")
	for _, l := range m.Layers {
		label := strings.Repeat("  ", l.Depth) + l.Label
		steps := l.Steps
		if steps == "" {
			steps = "-"
		}
		fmt.Fprintf(w, "%-30s %s\n", label, steps)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-6s %-30s %s\n", "STEP", "OUTPUT", "VISIBLE")
	for _, s := range m.Steps {
		fmt.Fprintf(w, "%-6d %-30s %s\n", s.Step, filepath.Base(s.Output), FormatLabelList(s.Visible))
	}

	if len(m.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warning := range m.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}
	}
}

// FormatLabelList joins layer labels for a table cell. An empty list is
// shown as "-".
func FormatLabelList(labels []string) string {
	if len(labels) == 0 {
		return "-"
	}
	return strings.Join(labels, ", ")
}
