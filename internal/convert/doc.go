// Package convert drives Inkscape to turn SVG files into page-description
// files.
//
// Three converters implement the Converter interface:
//   - Shell keeps one `inkscape --shell` session open and feeds it one
//     action line per file. Outputs are only guaranteed once the session
//     has quit, which Close does.
//   - OneShot runs one Inkscape process per file.
//   - Docker runs one container per file from an Inkscape image, for hosts
//     without a local installation.
//
// The tool checks (binary lookup and minimum version) run before any
// document is parsed. RunBatch feeds a list of jobs to a converter, in
// parallel when the converter allows it.
package convert
