package overlay

import (
	"fmt"

	"github.com/mmr-tortoise/overlay-export/internal/model"
	"github.com/mmr-tortoise/overlay-export/internal/svgdoc"
)

// Step is one materialized overlay step.
type Step struct {
	// Number is the step number, from 1 to Analysis.MaxStep.
	Number int

	// Name is the deterministic output base name, "<basename>-fig<Number>".
	Name string

	// Document is an independent clone of the canonical document with the
	// excluded layers removed.
	Document *svgdoc.Document

	// Visible lists the labels of the layers left in Document.
	Visible []string
}

// PlannedStep describes which layers a step keeps, without building the
// document.
type PlannedStep struct {
	Number  int      `json:"step" yaml:"step"`
	Name    string   `json:"name" yaml:"name"`
	Visible []string `json:"visible" yaml:"visible"`
}

// layerAction is what the materializer does to one layer in one step.
type layerAction int

const (
	actionKeep layerAction = iota
	actionShow
	actionRemove
)

// decide returns the action for a layer in step.
func decide(ls LayerSpec, step, maxStep int, policy model.UnmarkedPolicy) layerAction {
	if !ls.Controlled() {
		switch policy {
		case model.UnmarkedShow:
			return actionShow
		case model.UnmarkedRemove:
			return actionRemove
		default:
			return actionKeep
		}
	}
	if IsVisible(ls.Spec, step, maxStep) {
		return actionShow
	}
	return actionRemove
}

// stepSuffix separates the base name from the step number in output
// names. It does not follow the parser marker, so LaTeX sources keep
// working when the marker changes.
const stepSuffix = "fig"

// StepName returns the output base name of a step: "<base>-fig<step>".
func StepName(base string, step int) string {
	return fmt.Sprintf("%s-%s%d", base, stepSuffix, step)
}

// Materialize builds one document per step, 1..MaxStep in order. Each step
// starts from a deep clone of the canonical document; included layers are
// set visible and excluded layers are deleted from the clone. Unmarked
// layers follow policy.
//
// In bypass mode (MaxStep == 0) no step is produced; the caller converts
// the original input instead.
func Materialize(a *Analysis, policy model.UnmarkedPolicy) ([]Step, error) {
	steps := make([]Step, 0, a.MaxStep)
	for n := 1; n <= a.MaxStep; n++ {
		step, err := materializeStep(a, n, policy)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func materializeStep(a *Analysis, n int, policy model.UnmarkedPolicy) (Step, error) {
	clone := a.Document.Clone()
	layers := clone.FindLayers()
	if len(layers) != len(a.Layers) {
		return Step{}, fmt.Errorf("step %d: clone has %d layers, canonical document has %d",
			n, len(layers), len(a.Layers))
	}

	for i, l := range layers {
		switch decide(a.Layers[i], n, a.MaxStep, policy) {
		case actionShow:
			svgdoc.SetVisible(l)
		case actionRemove:
			if err := clone.RemoveLayer(l); err != nil {
				return Step{}, fmt.Errorf("step %d: %w", n, err)
			}
		}
	}

	remaining := clone.FindLayers()
	visible := make([]string, 0, len(remaining))
	for _, l := range remaining {
		visible = append(visible, l.Label)
	}

	return Step{
		Number:   n,
		Name:     StepName(a.Document.BaseName(), n),
		Document: clone,
		Visible:  visible,
	}, nil
}

// Plan computes the layers each step keeps without cloning the document.
// Sublayers of a removed layer are gone too. The result matches the
// Visible field of the steps Materialize produces.
func Plan(a *Analysis, policy model.UnmarkedPolicy) []PlannedStep {
	plan := make([]PlannedStep, 0, a.MaxStep)
	for n := 1; n <= a.MaxStep; n++ {
		visible := make([]string, 0, len(a.Layers))
		// Layers come in pre-order, so a removed layer hides every
		// following layer that is deeper than it.
		removedDepth := -1
		for _, ls := range a.Layers {
			depth := ls.Layer.Depth
			if removedDepth >= 0 && depth > removedDepth {
				continue
			}
			removedDepth = -1
			if decide(ls, n, a.MaxStep, policy) == actionRemove {
				removedDepth = depth
				continue
			}
			visible = append(visible, ls.Layer.Label)
		}
		plan = append(plan, PlannedStep{
			Number:  n,
			Name:    StepName(a.Document.BaseName(), n),
			Visible: visible,
		})
	}
	return plan
}
