// Package config loads the optional overlay-export configuration file.
//
// A configuration file holds defaults for the export flags, so a project
// can pin its marker, unmarked-layer policy or converter mode next to its
// drawings. Both YAML and JSON are accepted. JSON files may contain
// comments and trailing commas (JSONC), which github.com/tidwall/jsonc
// strips before decoding with encoding/json.
//
// Precedence, lowest first: built-in defaults, configuration file, flags
// given on the command line.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/overlay-export/internal/model"
	"github.com/mmr-tortoise/overlay-export/internal/overlay"
)

// FileNames lists the configuration files looked up next to the input, in
// priority order.
var FileNames = []string{
	".overlay-export.yaml",
	".overlay-export.yml",
	".overlay-export.json",
	".overlay-export.jsonc",
}

// Config holds every setting of the export command.
type Config struct {
	// Destination is the directory receiving the converted files. Empty
	// means the directory of the input file.
	Destination string `yaml:"destination,omitempty" json:"destination,omitempty"`

	// WorkDir is where the per-step SVG files are written. Empty means the
	// destination directory.
	WorkDir string `yaml:"workDir,omitempty" json:"workDir,omitempty"`

	// Keep preserves the per-step SVG files after a successful run.
	Keep bool `yaml:"keep" json:"keep"`

	// ExportArea is "drawing" (bounding box of the content) or "page".
	ExportArea model.ExportArea `yaml:"exportArea" json:"exportArea"`

	// Format is the output file type.
	Format model.OutputFormat `yaml:"format" json:"format"`

	// Mode selects how Inkscape is driven.
	Mode model.ConverterMode `yaml:"mode" json:"mode"`

	// Jobs is the number of parallel conversions for converters that
	// support it.
	Jobs int `yaml:"jobs" json:"jobs"`

	// Marker is the token introducing a step specifier in layer labels.
	Marker string `yaml:"marker" json:"marker"`

	// Unmarked is the policy applied to layers without a specifier.
	Unmarked model.UnmarkedPolicy `yaml:"unmarked" json:"unmarked"`

	// Inkscape is the executable name or path.
	Inkscape string `yaml:"inkscape,omitempty" json:"inkscape,omitempty"`

	// DockerImage is the image used by the docker converter.
	DockerImage string `yaml:"dockerImage,omitempty" json:"dockerImage,omitempty"`

	// Manifest is the path of the YAML manifest to write; empty disables it.
	Manifest string `yaml:"manifest,omitempty" json:"manifest,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ExportArea: model.AreaDrawing,
		Format:     model.FormatPDF,
		Mode:       model.ModeShell,
		Jobs:       1,
		Marker:     overlay.DefaultMarker,
		Unmarked:   model.DefaultUnmarkedPolicy,
	}
}

// Find returns the first configuration file present in dir, or "" when
// there is none.
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads the configuration file at path on top of the defaults. Keys
// absent from the file keep their default value; unknown keys are errors.
// Relative paths in the file are resolved against the file's directory.
//
// Returns a CLIError with ExitInvalidInput if the file cannot be read or
// decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitInvalidInput,
			fmt.Sprintf("cannot read configuration file %s", path),
			err,
		)
	}

	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		return nil, model.WrapCLIError(
			model.ExitInvalidInput,
			fmt.Sprintf("invalid configuration file %s", path),
			err,
		)
	}

	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Resolve returns the configuration for an input file: the file at
// explicit when given, otherwise the first file found next to the input,
// otherwise the defaults. The second result is the file used, if any.
func Resolve(explicit, inputPath string) (*Config, string, error) {
	path := explicit
	if path == "" {
		path = Find(filepath.Dir(inputPath))
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// decode picks the decoder from the file extension. Files without a known
// extension are decoded as YAML, which also accepts plain JSON.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

// resolvePaths makes relative paths from the file absolute against base.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.Destination, &c.WorkDir, &c.Manifest} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	// A bare command name is looked up on PATH; only paths are resolved.
	if strings.ContainsRune(c.Inkscape, filepath.Separator) && !filepath.IsAbs(c.Inkscape) {
		c.Inkscape = filepath.Join(base, c.Inkscape)
	}
}
