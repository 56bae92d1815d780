// Package model defines the domain types for the overlay-export CLI.
//
// The central type is StepRange, a tagged variant over the four shapes of
// the Beamer overlay range grammar. A StepSpecifier groups the ranges that
// were parsed from a single layer label.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeKind identifies the shape of a StepRange.
//
// The four kinds mirror the Beamer overlay specification:
//
//	3     → Exact      [3,3]
//	2-5   → Bounded    [2,5]
//	-6    → OpenLower  [1,6]
//	3-    → OpenUpper  [3,maxStep]
type RangeKind int

const (
	// RangeExact matches a single step number.
	RangeExact RangeKind = iota

	// RangeBounded matches every step between Start and End inclusive.
	RangeBounded

	// RangeOpenLower matches every step from 1 up to End inclusive.
	RangeOpenLower

	// RangeOpenUpper matches every step from Start up to the document-wide
	// maximum step. Its end is resolved lazily, at evaluation time.
	RangeOpenUpper
)

// String returns the string representation of RangeKind.
func (k RangeKind) String() string {
	switch k {
	case RangeExact:
		return "exact"
	case RangeBounded:
		return "bounded"
	case RangeOpenLower:
		return "open-lower"
	case RangeOpenUpper:
		return "open-upper"
	default:
		return fmt.Sprintf("RangeKind(%d)", int(k))
	}
}

// StepRange is one parsed unit of an overlay specification.
//
// Which fields are meaningful depends on Kind:
//   - RangeExact: Start (End equals Start)
//   - RangeBounded: Start and End
//   - RangeOpenLower: End (Start is implicitly 1)
//   - RangeOpenUpper: Start (End is resolved to maxStep)
type StepRange struct {
	Kind  RangeKind `json:"kind" yaml:"kind"`
	Start int       `json:"start,omitempty" yaml:"start,omitempty"`
	End   int       `json:"end,omitempty" yaml:"end,omitempty"`
}

// Exact returns the range [n,n].
func Exact(n int) StepRange {
	return StepRange{Kind: RangeExact, Start: n, End: n}
}

// Bounded returns the range [start,end].
func Bounded(start, end int) StepRange {
	return StepRange{Kind: RangeBounded, Start: start, End: end}
}

// OpenLower returns the range [1,end].
func OpenLower(end int) StepRange {
	return StepRange{Kind: RangeOpenLower, End: end}
}

// OpenUpper returns the range [start,maxStep].
func OpenUpper(start int) StepRange {
	return StepRange{Kind: RangeOpenUpper, Start: start}
}

// Resolve returns the concrete inclusive bounds of the range once the
// document-wide maximum step is known.
func (r StepRange) Resolve(maxStep int) (first, last int) {
	switch r.Kind {
	case RangeExact:
		return r.Start, r.Start
	case RangeOpenLower:
		return 1, r.End
	case RangeOpenUpper:
		return r.Start, maxStep
	default:
		return r.Start, r.End
	}
}

// Contains reports whether step falls inside the resolved range.
// A bounded range whose start exceeds its end never contains anything.
func (r StepRange) Contains(step, maxStep int) bool {
	first, last := r.Resolve(maxStep)
	return first <= step && step <= last
}

// FiniteEnd returns the upper endpoint of the range when it is known without
// the document context. Open-upper ranges have no finite end: their end
// depends on maxStep instead of contributing to it.
func (r StepRange) FiniteEnd() (int, bool) {
	switch r.Kind {
	case RangeExact:
		return r.Start, true
	case RangeBounded, RangeOpenLower:
		return r.End, true
	default:
		return 0, false
	}
}

// IsInverted reports whether the range is a bounded range with start > end.
func (r StepRange) IsInverted() bool {
	return r.Kind == RangeBounded && r.Start > r.End
}

// String formats the range back into Beamer overlay syntax.
func (r StepRange) String() string {
	switch r.Kind {
	case RangeExact:
		return strconv.Itoa(r.Start)
	case RangeBounded:
		return fmt.Sprintf("%d-%d", r.Start, r.End)
	case RangeOpenLower:
		return fmt.Sprintf("-%d", r.End)
	case RangeOpenUpper:
		return fmt.Sprintf("%d-", r.Start)
	default:
		return "?"
	}
}

// StepSpecifier is the parsed form of the overlay annotation of one label.
type StepSpecifier struct {
	// Label is the full layer label the specifier was extracted from.
	Label string `json:"label" yaml:"label"`

	// Ranges holds the successfully parsed ranges. Order is irrelevant and
	// duplicates are harmless.
	Ranges []StepRange `json:"ranges" yaml:"ranges"`

	// Skipped lists the unit tokens that could not be parsed.
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// IsEmpty reports whether the specifier has no usable range. Empty
// specifiers behave like labels without a marker.
func (s *StepSpecifier) IsEmpty() bool {
	return s == nil || len(s.Ranges) == 0
}

// String formats the specifier in bracketed Beamer overlay syntax.
func (s *StepSpecifier) String() string {
	if s.IsEmpty() {
		return "[]"
	}
	parts := make([]string, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		parts = append(parts, r.String())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ExportArea selects which part of the drawing Inkscape exports.
type ExportArea string

const (
	// AreaDrawing exports only the bounding box of the drawn content.
	AreaDrawing ExportArea = "drawing"

	// AreaPage exports the whole page of the document.
	AreaPage ExportArea = "page"
)

// String returns the string representation of ExportArea.
func (a ExportArea) String() string {
	return string(a)
}

// IsValid checks whether the ExportArea is one of the predefined values.
func (a ExportArea) IsValid() bool {
	return a == AreaDrawing || a == AreaPage
}

// ParseExportArea converts a string to an ExportArea.
func ParseExportArea(s string) (ExportArea, error) {
	area := ExportArea(strings.ToLower(s))
	if !area.IsValid() {
		return "", fmt.Errorf("invalid export area: %q (valid: drawing, page)", s)
	}
	return area, nil
}

// ConverterMode selects how Inkscape is driven.
type ConverterMode string

const (
	// ModeShell keeps a single `inkscape --shell` session open and feeds it
	// one action line per file.
	ModeShell ConverterMode = "shell"

	// ModeOneShot starts one Inkscape process per file.
	ModeOneShot ConverterMode = "oneshot"

	// ModeDocker runs Inkscape inside a container, one container per file.
	ModeDocker ConverterMode = "docker"
)

// String returns the string representation of ConverterMode.
func (m ConverterMode) String() string {
	return string(m)
}

// IsValid checks whether the ConverterMode is one of the predefined values.
func (m ConverterMode) IsValid() bool {
	switch m {
	case ModeShell, ModeOneShot, ModeDocker:
		return true
	default:
		return false
	}
}

// ParseConverterMode converts a string to a ConverterMode.
func ParseConverterMode(s string) (ConverterMode, error) {
	mode := ConverterMode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid converter mode: %q (valid: shell, oneshot, docker)", s)
	}
	return mode, nil
}

// UnmarkedPolicy decides what happens to layers without an overlay
// annotation when per-step documents are generated.
type UnmarkedPolicy string

const (
	// UnmarkedKeep leaves unannotated layers exactly as authored.
	UnmarkedKeep UnmarkedPolicy = "keep"

	// UnmarkedShow forces unannotated layers visible in every step.
	UnmarkedShow UnmarkedPolicy = "show"

	// UnmarkedRemove deletes unannotated layers from every step.
	UnmarkedRemove UnmarkedPolicy = "remove"
)

// DefaultUnmarkedPolicy makes unannotated layers visible on every step,
// including layers saved hidden.
const DefaultUnmarkedPolicy = UnmarkedShow

// String returns the string representation of UnmarkedPolicy.
func (p UnmarkedPolicy) String() string {
	return string(p)
}

// IsValid checks whether the UnmarkedPolicy is one of the predefined values.
func (p UnmarkedPolicy) IsValid() bool {
	switch p {
	case UnmarkedKeep, UnmarkedShow, UnmarkedRemove:
		return true
	default:
		return false
	}
}

// ParseUnmarkedPolicy converts a string to an UnmarkedPolicy.
func ParseUnmarkedPolicy(s string) (UnmarkedPolicy, error) {
	policy := UnmarkedPolicy(strings.ToLower(s))
	if !policy.IsValid() {
		return "", fmt.Errorf("invalid unmarked layer policy: %q (valid: keep, show, remove)", s)
	}
	return policy, nil
}

// OutputFormat is the file type Inkscape exports to. Inkscape infers the
// type from the extension of the export filename.
type OutputFormat string

const (
	FormatPDF OutputFormat = "pdf"
	FormatPNG OutputFormat = "png"
	FormatEPS OutputFormat = "eps"
	FormatPS  OutputFormat = "ps"
	FormatEMF OutputFormat = "emf"
	FormatWMF OutputFormat = "wmf"
)

// String returns the string representation of OutputFormat.
func (f OutputFormat) String() string {
	return string(f)
}

// Ext returns the file extension for the format, including the dot.
func (f OutputFormat) Ext() string {
	return "." + string(f)
}

// IsValid checks whether the OutputFormat is one Inkscape can export.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatPDF, FormatPNG, FormatEPS, FormatPS, FormatEMF, FormatWMF:
		return true
	default:
		return false
	}
}

// ParseOutputFormat converts a string (with or without a leading dot) to an
// OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimPrefix(s, ".")))
	if !format.IsValid() {
		return "", fmt.Errorf("invalid output format: %q (valid: pdf, png, eps, ps, emf, wmf)", s)
	}
	return format, nil
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// build systems (latexmk, make) to tell failure causes apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput indicates a usage or validation error: missing input
	// file or destination, unreadable SVG, invalid configuration.
	ExitInvalidInput ExitCode = 2

	// ExitToolNotFound indicates the Inkscape binary could not be located.
	ExitToolNotFound ExitCode = 3

	// ExitToolVersion indicates the installed Inkscape is too old.
	ExitToolVersion ExitCode = 4

	// ExitMalformedLabel indicates a layer label carries the overlay marker
	// but no step number at all.
	ExitMalformedLabel ExitCode = 5

	// ExitConversionFailed indicates Inkscape failed on one of the steps.
	ExitConversionFailed ExitCode = 6

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// while the docker converter mode was requested.
	ExitDockerNotRunning ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
