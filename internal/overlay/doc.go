// Package overlay interprets Beamer overlay annotations embedded in
// Inkscape layer labels and turns one SVG document into one filtered
// document per overlay step.
//
// A label such as "arrows-fig[-3,4,5-6,8-]" carries the marker token "fig"
// followed by a step specifier. The package is split along the data flow:
//
//   - label.go: the label grammar parser (marker scan, payload tokenizer)
//   - evaluate.go: the step membership evaluator and max-step resolver
//   - analyze.go: parsing every layer of a document once, up front
//   - materialize.go: per-step deep clones with excluded layers removed
//
// Layers whose label carries no marker are not step-controlled. What
// happens to them in each step is decided by model.UnmarkedPolicy.
package overlay
