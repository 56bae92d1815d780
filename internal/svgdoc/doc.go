// Package svgdoc provides the structural operations overlay-export needs on
// Inkscape SVG documents: loading, finding layers, toggling their
// visibility, removing them, deep-cloning the tree and writing it back.
//
// The XML tree is held by github.com/beevik/etree, which keeps comments,
// processing instructions and namespace prefixes intact so that the
// per-step files written back are the input file minus the removed layers.
// Input decoding goes through golang.org/x/net/html/charset so documents
// declared in a legacy encoding (ISO-8859-1, windows-1252) load correctly.
package svgdoc
