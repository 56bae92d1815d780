// export.go implements the "overlay-export export" command.
//
// Orchestration steps:
//  1. Load the configuration and apply explicitly set flags on top
//  2. Check the input file and the destination directory
//  3. Start the converter (tool lookup and version check)
//  4. Parse the SVG and analyze its layer labels
//  5. Write one filtered SVG per step to the work directory
//  6. Convert every step, then remove the per-step SVGs unless --keep
//  7. Optionally write the manifest, then output results (text or JSON)
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/overlay-export/internal/config"
	"github.com/mmr-tortoise/overlay-export/internal/convert"
	"github.com/mmr-tortoise/overlay-export/internal/manifest"
	"github.com/mmr-tortoise/overlay-export/internal/model"
	"github.com/mmr-tortoise/overlay-export/internal/overlay"
	"github.com/mmr-tortoise/overlay-export/internal/svgdoc"
)

// exportFlags holds the flag values for the export command. Only flags
// set on the command line override the configuration file.
type exportFlags struct {
	destination string
	noAreaDraw  bool
	keep        bool
	workDir     string
	format      string
	mode        string
	jobs        int
	marker      string
	unmarked    string
	inkscape    string
	dockerImage string
	manifest    string
	configPath  string
}

// exportResult is the command output.
type exportResult struct {
	Input      string   `json:"input"`
	Config     string   `json:"config,omitempty"`
	MaxStep    int      `json:"maxStep"`
	Bypass     bool     `json:"bypass"`
	Outputs    []string `json:"outputs"`
	Kept       []string `json:"intermediates,omitempty"`
	Manifest   string   `json:"manifest,omitempty"`
	OpenEnded  []string `json:"openEndedOnly,omitempty"`
	Mode       string   `json:"mode"`
	ExportArea string   `json:"exportArea"`
}

// NewExportCommand creates the "export" cobra command.
func NewExportCommand() *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export <svg>",
		Short: "Export one file per overlay step",
		Long: `Export an Inkscape drawing as one file per overlay step.

For every step from 1 to the largest step number found in the layer labels,
a copy of the drawing without the layers hidden on that step is written to
the work directory and converted with Inkscape into the destination.
Drawings without any finite step number are converted once, unmodified.

Settings are read from --config, or from .overlay-export.yaml (.yml, .json,
.jsonc) next to the input. Flags given on the command line take precedence.

Examples:
  overlay-export export slides.svg
  overlay-export export -d build/ --format png slides.svg
  overlay-export export --mode docker --jobs 4 slides.svg
  overlay-export export -k --work-dir /tmp/steps --manifest steps.yaml slides.svg`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), args[0], flags, cmd.Flags().Changed)
		},
	}

	cmd.Flags().StringVarP(&flags.destination, "destination", "d", "", "Output directory (default: directory of the input)")
	cmd.Flags().BoolVarP(&flags.noAreaDraw, "no-export-area-drawing", "n", false, "Export the whole page instead of the drawing bounding box")
	cmd.Flags().BoolVarP(&flags.keep, "keep", "k", false, "Keep the per-step SVG files")
	cmd.Flags().StringVar(&flags.workDir, "work-dir", "", "Directory for the per-step SVG files (default: destination)")
	cmd.Flags().StringVar(&flags.format, "format", string(model.FormatPDF), "Output format: pdf, png, eps, ps, emf, wmf")
	cmd.Flags().StringVar(&flags.mode, "mode", string(model.ModeShell), "Converter: shell, oneshot, docker")
	cmd.Flags().IntVar(&flags.jobs, "jobs", 1, "Parallel conversions (oneshot and docker modes)")
	cmd.Flags().StringVar(&flags.marker, "marker", overlay.DefaultMarker, "Token introducing a step specifier in layer labels (output names keep the -fig<N> suffix)")
	cmd.Flags().StringVar(&flags.unmarked, "unmarked", string(model.DefaultUnmarkedPolicy), "Layers without specifier: show, keep, remove")
	cmd.Flags().StringVar(&flags.inkscape, "inkscape", convert.DefaultBinary, "Inkscape executable")
	cmd.Flags().StringVar(&flags.dockerImage, "docker-image", convert.DefaultImage, "Image used by the docker converter")
	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "Write a YAML manifest of the outputs to this path")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Configuration file (default: discovered next to the input)")

	return cmd
}

// runExport is the main logic function for the export command.
func runExport(ctx context.Context, out io.Writer, input string, flags *exportFlags, changed func(string) bool) error {
	// Step 1: Check the input before anything reads it.
	inputPath, err := filepath.Abs(input)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("invalid input path %q", input), err)
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("input file %s not found", input), err)
	}
	if info.IsDir() {
		return model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("input %s is a directory", input))
	}

	// Step 2: Configuration, with explicit flags on top.
	cfg, cfgPath, err := config.Resolve(flags.configPath, inputPath)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		VerboseLog("Loaded configuration from %s", cfgPath)
	}
	applyExportFlags(cfg, flags, changed)
	if err := config.Join(config.Validate(cfg)); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid configuration", err)
	}

	dest, workDir, err := resolveDirs(cfg, inputPath)
	if err != nil {
		return err
	}
	VerboseLog("Destination %s, work directory %s", dest, workDir)

	// Step 3: The tool is checked before the document is parsed.
	conv, err := convert.Open(ctx, convert.Options{
		Mode:   cfg.Mode,
		Binary: cfg.Inkscape,
		Image:  cfg.DockerImage,
		Area:   cfg.ExportArea,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = conv.Close()
		}
	}()

	// Step 4: Parse and analyze.
	doc, err := svgdoc.Load(inputPath)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("cannot read %s", input), err)
	}
	analysis, err := overlay.Analyze(doc, overlay.NewParser(cfg.Marker, logger))
	if err != nil {
		return model.WrapCLIError(model.ExitMalformedLabel, "malformed layer label", err)
	}
	VerboseLog("Found %d layers, %d step-controlled, max step %d",
		len(analysis.Layers), analysis.ControlledCount(), analysis.MaxStep)

	result := &exportResult{
		Input:      inputPath,
		Config:     cfgPath,
		MaxStep:    analysis.MaxStep,
		Bypass:     analysis.Bypass(),
		Outputs:    []string{},
		OpenEnded:  analysis.OpenEndedOnly,
		Mode:       cfg.Mode.String(),
		ExportArea: cfg.ExportArea.String(),
	}
	if result.Bypass {
		for _, label := range analysis.OpenEndedOnly {
			logger.Warn("layer only has open-ended ranges and cannot set the step count", "label", label)
		}
	}

	// Step 5: Per-step documents.
	jobs, intermediates, err := buildJobs(analysis, cfg, dest, workDir)
	if err != nil {
		if len(intermediates) > 0 {
			logger.Warn("per-step SVG files kept for inspection", "dir", workDir)
		}
		return err
	}

	if err := clearOutputs(jobs); err != nil {
		return err
	}

	// Step 6: Convert. Close also reports the final status of a shell
	// session, whose outputs only exist once it has quit.
	err = convert.RunBatch(ctx, conv, jobs, cfg.Jobs, logger)
	closed = true
	if closeErr := conv.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = verifyOutputs(jobs)
	}
	if err != nil {
		if len(intermediates) > 0 {
			logger.Warn("per-step SVG files kept for inspection", "dir", workDir)
		}
		return err
	}

	for _, job := range jobs {
		result.Outputs = append(result.Outputs, job.Output)
	}
	if cfg.Keep {
		result.Kept = intermediates
	} else {
		removeFiles(intermediates)
	}

	// Step 7: Manifest and results.
	if cfg.Manifest != "" {
		if err := writeManifest(analysis, cfg, dest); err != nil {
			return err
		}
		result.Manifest = cfg.Manifest
		VerboseLog("Wrote manifest %s", cfg.Manifest)
	}

	if IsJSONOutput() {
		return printJSON(out, result)
	}
	printExportResultText(out, result)
	return nil
}

// applyExportFlags copies every flag reported as changed into cfg. Enum
// values are copied as given and checked by config.Validate.
func applyExportFlags(cfg *config.Config, flags *exportFlags, changed func(string) bool) {
	if changed("destination") {
		cfg.Destination = flags.destination
	}
	if changed("no-export-area-drawing") {
		if flags.noAreaDraw {
			cfg.ExportArea = model.AreaPage
		} else {
			cfg.ExportArea = model.AreaDrawing
		}
	}
	if changed("keep") {
		cfg.Keep = flags.keep
	}
	if changed("work-dir") {
		cfg.WorkDir = flags.workDir
	}
	if changed("format") {
		cfg.Format = model.OutputFormat(flags.format)
	}
	if changed("mode") {
		cfg.Mode = model.ConverterMode(flags.mode)
	}
	if changed("jobs") {
		cfg.Jobs = flags.jobs
	}
	if changed("marker") {
		cfg.Marker = flags.marker
	}
	if changed("unmarked") {
		cfg.Unmarked = model.UnmarkedPolicy(flags.unmarked)
	}
	if changed("inkscape") {
		cfg.Inkscape = flags.inkscape
	}
	if changed("docker-image") {
		cfg.DockerImage = flags.dockerImage
	}
	if changed("manifest") {
		cfg.Manifest = flags.manifest
	}
}

// resolveDirs returns the absolute destination and work directories. The
// destination must already exist; a work directory distinct from it is
// created on demand.
func resolveDirs(cfg *config.Config, inputPath string) (string, string, error) {
	dest := cfg.Destination
	if dest == "" {
		dest = filepath.Dir(inputPath)
	}
	dest, err := filepath.Abs(dest)
	if err != nil {
		return "", "", model.WrapCLIError(model.ExitInvalidInput, "invalid destination", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return "", "", model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("destination %s does not exist", dest), err)
	}
	if !info.IsDir() {
		return "", "", model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("destination %s is not a directory", dest))
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		return dest, dest, nil
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return "", "", model.WrapCLIError(model.ExitInvalidInput, "invalid work directory", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", "", model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("cannot create work directory %s", workDir), err)
	}
	return dest, workDir, nil
}

// buildJobs writes the per-step documents and returns the conversions to
// run along with the files written. In bypass mode the input itself is the
// only job and nothing is written.
func buildJobs(a *overlay.Analysis, cfg *config.Config, dest, workDir string) ([]convert.Job, []string, error) {
	if a.Bypass() {
		return []convert.Job{{
			Step:   0,
			Input:  a.Document.Path,
			Output: manifest.OutputPath(dest, a.Document.BaseName(), cfg.Format),
		}}, nil, nil
	}

	steps, err := overlay.Materialize(a, cfg.Unmarked)
	if err != nil {
		return nil, nil, model.WrapCLIError(model.ExitGeneralError, "failed to build step documents", err)
	}

	jobs := make([]convert.Job, 0, len(steps))
	written := make([]string, 0, len(steps))
	for _, step := range steps {
		svgPath := filepath.Join(workDir, step.Name+".svg")
		if err := step.Document.WriteFile(svgPath); err != nil {
			return nil, written, model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("cannot write %s", svgPath), err)
		}
		written = append(written, svgPath)
		VerboseLog("Wrote step %d with %d layers: %s", step.Number, len(step.Visible), svgPath)

		jobs = append(jobs, convert.Job{
			Step:   step.Number,
			Input:  svgPath,
			Output: manifest.OutputPath(dest, step.Name, cfg.Format),
		})
	}
	return jobs, written, nil
}

// clearOutputs removes outputs left by an earlier run, so that
// verifyOutputs only sees files written by this one.
func clearOutputs(jobs []convert.Job) error {
	for _, job := range jobs {
		if err := os.Remove(job.Output); err != nil && !os.IsNotExist(err) {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("cannot replace existing output %s", job.Output), err)
		}
	}
	return nil
}

// verifyOutputs checks that every job produced its output. Inkscape's
// shell mode reports a failed export only on its own output stream.
func verifyOutputs(jobs []convert.Job) error {
	for _, job := range jobs {
		if _, err := os.Stat(job.Output); err != nil {
			return model.WrapCLIError(model.ExitConversionFailed,
				fmt.Sprintf("step %d: Inkscape did not produce %s", job.Step, job.Output), err)
		}
	}
	return nil
}

// removeFiles deletes paths, logging failures.
func removeFiles(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("cannot remove intermediate file", "path", path, "err", err)
		}
	}
}

func writeManifest(a *overlay.Analysis, cfg *config.Config, dest string) error {
	m := manifest.Build(a, manifest.Options{
		Format:      cfg.Format,
		ExportArea:  cfg.ExportArea,
		Unmarked:    cfg.Unmarked,
		Destination: dest,
	})
	data, err := manifest.Generate(m)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to generate manifest", err)
	}
	if err := manifest.Write(cfg.Manifest, data); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("cannot write manifest %s", cfg.Manifest), err)
	}
	return nil
}

// printExportResultText outputs the export result in human-readable form.
func printExportResultText(w io.Writer, r *exportResult) {
	name := filepath.Base(r.Input)
	if r.Bypass {
		fmt.Fprintf(w, "No overlay steps in %s; converted it unmodified.\n", name)
	} else {
		fmt.Fprintf(w, "Exported %d steps from %s.\n", r.MaxStep, name)
	}
	fmt.Fprintln(w)

	for _, output := range r.Outputs {
		fmt.Fprintf(w, "  %s\n", output)
	}
	if len(r.Kept) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Kept %d per-step SVG files in %s\n", len(r.Kept), filepath.Dir(r.Kept[0]))
	}
	if r.Manifest != "" {
		fmt.Fprintf(w, "Manifest: %s\n", r.Manifest)
	}
}
