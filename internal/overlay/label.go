package overlay

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// DefaultMarker is the token that introduces a step specifier in a label.
const DefaultMarker = "fig"

// LabelError reports a label that carries the marker but no step number at
// all, e.g. "fig[]" or "fig[abc]". It is fatal to the whole run.
type LabelError struct {
	Label   string
	Marker  string
	Payload string
}

// Error implements the error interface for LabelError.
func (e *LabelError) Error() string {
	return fmt.Sprintf("layer label %q is malformed: %q is followed by %q, which contains no step number",
		e.Label, e.Marker, e.Payload)
}

// Parser extracts step specifiers from layer labels.
type Parser struct {
	marker string
	logger *slog.Logger
}

// NewParser creates a Parser for the given marker token. An empty marker
// selects DefaultMarker. Warnings about skipped range tokens go to logger;
// a nil logger discards them.
func NewParser(marker string, logger *slog.Logger) *Parser {
	if marker == "" {
		marker = DefaultMarker
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{marker: strings.ToLower(marker), logger: logger}
}

// Marker returns the lower-cased marker token.
func (p *Parser) Marker() string {
	return p.marker
}

// Parse extracts the step specifier of label.
//
// It returns (nil, nil) when the label carries no marker: such layers are
// not step-controlled. It returns a *LabelError when the marker is present
// but its payload has no digit. Individual malformed range tokens are
// skipped with a warning and listed in StepSpecifier.Skipped.
func (p *Parser) Parse(label string) (*model.StepSpecifier, error) {
	payload, found := p.findPayload(label)
	if !found {
		return nil, nil
	}
	if !strings.ContainsAny(payload, "0123456789") {
		return nil, &LabelError{Label: label, Marker: p.marker, Payload: payload}
	}

	spec := &model.StepSpecifier{Label: label}
	for _, raw := range strings.Split(payload, ",") {
		text := strings.TrimSpace(raw)
		r, err := parseUnit(text)
		if err != nil {
			p.logger.Warn("skipping malformed overlay range",
				"label", label, "token", text, "reason", err.Error())
			spec.Skipped = append(spec.Skipped, text)
			continue
		}
		if r.IsInverted() {
			p.logger.Warn("overlay range has its start after its end and never matches",
				"label", label, "token", text)
		}
		spec.Ranges = append(spec.Ranges, r)
	}
	return spec, nil
}

// findPayload locates the first marker occurrence that is followed by '[',
// a digit or a dash, and returns the text that follows it.
//
// Bracketed payloads run up to the next ']' (or the end of the label when
// the bracket is never closed). Bare payloads are the longest run of
// digits, dashes and commas, so "layer_fig3 text" yields "3". An occurrence
// followed by anything else ("figure", "config") is not a marker.
func (p *Parser) findPayload(label string) (string, bool) {
	n := len(p.marker)
	for i := 0; i+n <= len(label); i++ {
		if !strings.EqualFold(label[i:i+n], p.marker) {
			continue
		}
		rest := label[i+n:]
		if rest == "" {
			continue
		}
		switch c := rest[0]; {
		case c == '[':
			body := rest[1:]
			if end := strings.IndexByte(body, ']'); end >= 0 {
				body = body[:end]
			}
			return body, true
		case isDigit(c) || c == '-':
			end := 0
			for end < len(rest) && (isDigit(rest[end]) || rest[end] == '-' || rest[end] == ',') {
				end++
			}
			return rest[:end], true
		}
	}
	return "", false
}

// unitToken is one comma-separated element of a payload split into its
// three optional parts: digits, dash, digits.
type unitToken struct {
	start string
	dash  bool
	end   string
}

// scanUnit splits text into a unitToken. It fails when text contains
// anything besides the digits?-?digits? shape.
func scanUnit(text string) (unitToken, bool) {
	var tok unitToken
	i := 0
	for i < len(text) && isDigit(text[i]) {
		i++
	}
	tok.start = text[:i]
	if i < len(text) && text[i] == '-' {
		tok.dash = true
		i++
	}
	j := i
	for j < len(text) && isDigit(text[j]) {
		j++
	}
	tok.end = text[i:j]
	return tok, j == len(text)
}

// parseUnit converts one unit token into a StepRange:
//
//	N    → Exact
//	N-   → OpenUpper
//	-M   → OpenLower
//	N-M  → Bounded
func parseUnit(text string) (model.StepRange, error) {
	tok, ok := scanUnit(text)
	if !ok {
		return model.StepRange{}, fmt.Errorf("unexpected character in %q", text)
	}

	var start, end int
	var err error
	if tok.start != "" {
		if start, err = stepNumber(tok.start); err != nil {
			return model.StepRange{}, err
		}
	}
	if tok.end != "" {
		if end, err = stepNumber(tok.end); err != nil {
			return model.StepRange{}, err
		}
	}

	switch {
	case tok.start != "" && !tok.dash:
		return model.Exact(start), nil
	case tok.start != "" && tok.dash && tok.end == "":
		return model.OpenUpper(start), nil
	case tok.start == "" && tok.dash && tok.end != "":
		return model.OpenLower(end), nil
	case tok.start != "" && tok.dash && tok.end != "":
		return model.Bounded(start, end), nil
	default:
		return model.StepRange{}, fmt.Errorf("%q is not a step number or range", text)
	}
}

// stepNumber parses a positive step number. Steps are numbered from 1.
func stepNumber(digits string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("step number %q out of range", digits)
	}
	if n < 1 {
		return 0, fmt.Errorf("step numbers start at 1, got %d", n)
	}
	return n, nil
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
