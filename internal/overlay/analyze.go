package overlay

import (
	"github.com/mmr-tortoise/overlay-export/internal/model"
	"github.com/mmr-tortoise/overlay-export/internal/svgdoc"
)

// LayerSpec pairs a layer of the canonical document with its parsed
// specifier. Spec is nil for layers without a marker.
type LayerSpec struct {
	Layer *svgdoc.Layer
	Spec  *model.StepSpecifier
}

// Controlled reports whether the layer is step-controlled.
func (ls LayerSpec) Controlled() bool {
	return !ls.Spec.IsEmpty()
}

// Analysis is the result of parsing every layer label of a document. It is
// computed once, before any per-step filtering, and is read-only afterward.
type Analysis struct {
	// Document is the canonical document. It is never modified.
	Document *svgdoc.Document

	// Marker is the marker token the labels were parsed with.
	Marker string

	// Layers lists every layer in document order.
	Layers []LayerSpec

	// MaxStep is the number of steps to generate; 0 selects the bypass path.
	MaxStep int

	// OpenEndedOnly lists the labels of layers whose specifiers contain
	// nothing but open-upper ranges. When MaxStep is 0 these layers are
	// the reason no steps are generated.
	OpenEndedOnly []string
}

// Analyze parses the label of every layer of doc and resolves the
// document-wide maximum step. The first malformed top-level label aborts
// the analysis with a *LabelError.
func Analyze(doc *svgdoc.Document, parser *Parser) (*Analysis, error) {
	layers := doc.FindLayers()
	a := &Analysis{
		Document: doc,
		Marker:   parser.Marker(),
		Layers:   make([]LayerSpec, 0, len(layers)),
	}

	specs := make([]*model.StepSpecifier, 0, len(layers))
	for _, l := range layers {
		spec, err := parser.Parse(l.Label)
		if err != nil {
			return nil, err
		}
		a.Layers = append(a.Layers, LayerSpec{Layer: l, Spec: spec})
		specs = append(specs, spec)
		if onlyOpenUpper(spec) {
			a.OpenEndedOnly = append(a.OpenEndedOnly, l.Label)
		}
	}

	a.MaxStep = ComputeMaxStep(specs)
	return a, nil
}

// Bypass reports whether the document has no step-controlled layer with a
// finite endpoint, in which case the input is converted once, unmodified.
func (a *Analysis) Bypass() bool {
	return a.MaxStep == 0
}

// ControlledCount returns the number of step-controlled layers.
func (a *Analysis) ControlledCount() int {
	n := 0
	for _, ls := range a.Layers {
		if ls.Controlled() {
			n++
		}
	}
	return n
}
