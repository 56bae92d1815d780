package overlay

import "github.com/mmr-tortoise/overlay-export/internal/model"

// IsVisible reports whether a layer with the given specifier is shown in
// step. Open-lower ranges start at 1 and open-upper ranges end at maxStep.
//
// Nil or empty specifiers are not step-controlled and are reported visible;
// the materializer applies the unmarked-layer policy to them instead of
// calling IsVisible.
func IsVisible(spec *model.StepSpecifier, step, maxStep int) bool {
	if spec.IsEmpty() {
		return true
	}
	for _, r := range spec.Ranges {
		if r.Contains(step, maxStep) {
			return true
		}
	}
	return false
}

// ComputeMaxStep returns the largest finite endpoint over all specifiers:
// the value of exact ranges and the end of bounded and open-lower ranges.
// Open-upper ranges are excluded since their end is maxStep itself.
//
// The result is 0 when no specifier carries a finite endpoint, which
// selects the single-output bypass path.
func ComputeMaxStep(specs []*model.StepSpecifier) int {
	maxStep := 0
	for _, spec := range specs {
		if spec == nil {
			continue
		}
		for _, r := range spec.Ranges {
			if end, ok := r.FiniteEnd(); ok && end > maxStep {
				maxStep = end
			}
		}
	}
	return maxStep
}

// onlyOpenUpper reports whether spec has ranges and all of them are
// open-upper, i.e. it cannot contribute to the max-step computation.
func onlyOpenUpper(spec *model.StepSpecifier) bool {
	if spec.IsEmpty() {
		return false
	}
	for _, r := range spec.Ranges {
		if _, ok := r.FiniteEnd(); ok {
			return false
		}
	}
	return true
}
