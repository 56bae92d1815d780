package svgdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// XML namespaces Inkscape writes into every document it saves.
const (
	SVGNamespace      = "http://www.w3.org/2000/svg"
	InkscapeNamespace = "http://www.inkscape.org/namespaces/inkscape"
)

// Inkscape marks a <g> element as a layer with inkscape:groupmode="layer"
// and stores the user-visible layer name in inkscape:label.
const (
	groupModeKey   = "groupmode"
	groupModeLayer = "layer"
	labelKey       = "label"
	inkscapePrefix = "inkscape"
)

// ErrNotSVG is returned when the parsed XML has no <svg> root element.
var ErrNotSVG = errors.New("document root is not an <svg> element")

// Document is a parsed SVG file.
type Document struct {
	// Path is the file the document was loaded from. Empty for documents
	// parsed from a reader.
	Path string

	tree *etree.Document
}

// Load reads and parses the SVG file at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SVG document: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG document %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse reads an SVG document from r.
func Parse(r io.Reader) (*Document, error) {
	tree := etree.NewDocument()
	// Honor the encoding named in the XML declaration.
	tree.ReadSettings.CharsetReader = charset.NewReaderLabel
	tree.ReadSettings.PreserveCData = true

	if _, err := tree.ReadFrom(r); err != nil {
		return nil, err
	}

	root := tree.Root()
	if root == nil || root.Tag != "svg" {
		return nil, ErrNotSVG
	}
	normalizeDeclaration(tree)
	return &Document{tree: tree}, nil
}

var encodingDecl = regexp.MustCompile(`encoding\s*=\s*("[^"]*"|'[^']*')`)

// normalizeDeclaration rewrites the encoding of the XML declaration to
// UTF-8. The charset reader has already transcoded the content and etree
// always writes UTF-8, so keeping a legacy declaration would corrupt the
// files written back.
func normalizeDeclaration(tree *etree.Document) {
	for _, tok := range tree.Child {
		pi, ok := tok.(*etree.ProcInst)
		if !ok || pi.Target != "xml" {
			continue
		}
		pi.Inst = encodingDecl.ReplaceAllString(pi.Inst, `encoding="UTF-8"`)
		return
	}
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// BaseName returns the file name of the source document without directory
// and extension ("slides/arch.svg" → "arch").
func (d *Document) BaseName() string {
	base := filepath.Base(d.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Clone returns a deep, fully independent copy of the document. Edits on the
// clone never affect the original or other clones.
func (d *Document) Clone() *Document {
	return &Document{Path: d.Path, tree: d.tree.Copy()}
}

// FindLayers returns every Inkscape layer of the document in document
// order: top-level layers and, recursively, their sublayers. The order is
// stable, so the i-th layer of a document and the i-th layer of any clone
// of it are the same structural node.
func (d *Document) FindLayers() []*Layer {
	var layers []*Layer
	collectLayers(d.tree.Root(), 0, &layers)
	return layers
}

func collectLayers(parent *etree.Element, depth int, out *[]*Layer) {
	for _, child := range parent.ChildElements() {
		if !isLayer(child) {
			continue
		}
		*out = append(*out, &Layer{
			Index: len(*out),
			Depth: depth,
			Label: inkscapeAttr(child, labelKey),
			el:    child,
		})
		collectLayers(child, depth+1, out)
	}
}

// RemoveLayer deletes the layer node, and everything below it, from the
// document.
func (d *Document) RemoveLayer(l *Layer) error {
	parent := l.el.Parent()
	if parent == nil {
		return fmt.Errorf("layer %q has no parent element", l.Label)
	}
	if parent.RemoveChild(l.el) == nil {
		return fmt.Errorf("layer %q is not a child of its recorded parent", l.Label)
	}
	return nil
}

// WriteFile serializes the document to path, replacing any existing file.
func (d *Document) WriteFile(path string) error {
	if err := d.tree.WriteToFile(path); err != nil {
		return fmt.Errorf("failed to write SVG document %s: %w", path, err)
	}
	return nil
}

// WriteTo serializes the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.tree.WriteTo(w)
}

// Bytes returns the serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isLayer(el *etree.Element) bool {
	if el.Tag != "g" {
		return false
	}
	if ns := el.NamespaceURI(); ns != "" && ns != SVGNamespace {
		return false
	}
	return inkscapeAttr(el, groupModeKey) == groupModeLayer
}

// inkscapeAttr returns the value of an attribute in the Inkscape namespace.
// Documents normally bind the namespace to the "inkscape" prefix, but any
// prefix bound to the namespace URI is accepted.
func inkscapeAttr(el *etree.Element, key string) string {
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Key != key {
			continue
		}
		if a.Space == inkscapePrefix || a.NamespaceURI() == InkscapeNamespace {
			return a.Value
		}
	}
	return ""
}
