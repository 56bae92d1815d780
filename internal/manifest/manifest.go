// Package manifest records what an export produced: the source document,
// the step count and, for each step, the output file and the layers it
// shows. The manifest is written as YAML next to the outputs when
// requested, and the plan command prints the same structure as JSON.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/overlay-export/internal/model"
	"github.com/mmr-tortoise/overlay-export/internal/overlay"
)

// Manifest describes one export run.
type Manifest struct {
	// Source is the input SVG path.
	Source string `yaml:"source" json:"source"`

	// Marker is the marker token used to parse the layer labels.
	Marker string `yaml:"marker" json:"marker"`

	// MaxStep is the number of steps; 0 means the input was converted
	// unmodified.
	MaxStep int `yaml:"maxStep" json:"maxStep"`

	// Format and ExportArea are the conversion options.
	Format     model.OutputFormat `yaml:"format" json:"format"`
	ExportArea model.ExportArea   `yaml:"exportArea" json:"exportArea"`

	// Unmarked is the policy applied to layers without a specifier.
	Unmarked model.UnmarkedPolicy `yaml:"unmarked" json:"unmarked"`

	// Layers lists every layer with its parsed specifier.
	Layers []Layer `yaml:"layers" json:"layers"`

	// Steps lists the outputs in step order. In bypass mode it holds a
	// single entry with step 0.
	Steps []Step `yaml:"steps" json:"steps"`

	// Warnings collects non-fatal findings, e.g. skipped range tokens.
	Warnings []string `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// Layer is one layer of the source document.
type Layer struct {
	Label string `yaml:"label" json:"label"`
	Depth int    `yaml:"depth" json:"depth"`

	// Steps is the specifier in overlay syntax, empty for unmarked layers.
	Steps string `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// Step is one output file.
type Step struct {
	Step    int      `yaml:"step" json:"step"`
	Output  string   `yaml:"output" json:"output"`
	Visible []string `yaml:"visible" json:"visible"`
}

// Options carries the conversion settings recorded in the manifest.
type Options struct {
	Format     model.OutputFormat
	ExportArea model.ExportArea
	Unmarked   model.UnmarkedPolicy

	// Destination is the output directory.
	Destination string
}

// Build assembles the manifest of an analysis. Output names follow the
// naming used by the export command: "<step name>.<ext>" in the
// destination, or "<base>.<ext>" in bypass mode.
func Build(a *overlay.Analysis, opts Options) *Manifest {
	m := &Manifest{
		Source:     a.Document.Path,
		Marker:     a.Marker,
		MaxStep:    a.MaxStep,
		Format:     opts.Format,
		ExportArea: opts.ExportArea,
		Unmarked:   opts.Unmarked,
		Layers:     make([]Layer, 0, len(a.Layers)),
	}

	for _, ls := range a.Layers {
		layer := Layer{Label: ls.Layer.Label, Depth: ls.Layer.Depth}
		if ls.Spec != nil {
			layer.Steps = ls.Spec.String()
			for _, tok := range ls.Spec.Skipped {
				m.Warnings = append(m.Warnings, fmt.Sprintf("layer %q: skipped malformed range %q", ls.Layer.Label, tok))
			}
		}
		m.Layers = append(m.Layers, layer)
	}

	if a.Bypass() {
		visible := make([]string, 0, len(a.Layers))
		for _, ls := range a.Layers {
			visible = append(visible, ls.Layer.Label)
		}
		m.Steps = []Step{{
			Step:    0,
			Output:  OutputPath(opts.Destination, a.Document.BaseName(), opts.Format),
			Visible: visible,
		}}
		for _, label := range a.OpenEndedOnly {
			m.Warnings = append(m.Warnings, fmt.Sprintf("layer %q only has open-ended ranges and cannot set the step count", label))
		}
		return m
	}

	for _, p := range overlay.Plan(a, opts.Unmarked) {
		m.Steps = append(m.Steps, Step{
			Step:    p.Number,
			Output:  OutputPath(opts.Destination, p.Name, opts.Format),
			Visible: p.Visible,
		})
	}
	return m
}

// OutputPath returns dir/name.ext.
func OutputPath(dir, name string, format model.OutputFormat) string {
	return filepath.Join(dir, name+format.Ext())
}

// Generate serializes the manifest to YAML with a header comment.
func Generate(m *Manifest) ([]byte, error) {
	yamlBytes, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest YAML: %w", err)
	}

	header := fmt.Sprintf(
		"# Generated by overlay-export from %s\n# DO NOT EDIT - this file is rewritten on each export\n",
		filepath.Base(m.Source),
	)
	return []byte(header + string(yamlBytes)), nil
}

// Write stores data at path, creating parent directories as needed.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest to %s: %w", path, err)
	}
	return nil
}

// Load reads a manifest written by Write.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
