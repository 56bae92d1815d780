package svgdoc

import (
	"strings"

	"github.com/beevik/etree"
)

const (
	styleAttr      = "style"
	displayAttr    = "display"
	displayInline  = "inline"
	displayNone    = "none"
	styleSeparator = ";"
)

// Layer is an Inkscape layer: a <g inkscape:groupmode="layer"> element.
//
// Layer values are bound to the document FindLayers was called on. Labels are
// not unique, so callers match layers across clones by Index.
type Layer struct {
	// Index is the position of the layer in document order.
	Index int

	// Depth is 0 for top-level layers and grows by one per sublayer level.
	Depth int

	// Label is the inkscape:label attribute, empty when absent.
	Label string

	el *etree.Element
}

// ID returns the id attribute of the layer element.
func (l *Layer) ID() string {
	return l.el.SelectAttrValue("id", "")
}

// Visible reports whether the layer is displayed, looking at both the
// display property of the style attribute and the display presentation
// attribute.
func (l *Layer) Visible() bool {
	if value, ok := styleProperty(l.el.SelectAttrValue(styleAttr, ""), displayAttr); ok {
		return value != displayNone
	}
	return l.el.SelectAttrValue(displayAttr, displayInline) != displayNone
}

// SetVisible marks the layer as shown by setting display:inline in its
// style. Other style declarations are kept.
func SetVisible(l *Layer) {
	style := setStyleProperty(l.el.SelectAttrValue(styleAttr, ""), displayAttr, displayInline)
	l.el.CreateAttr(styleAttr, style)
	if l.el.SelectAttrValue(displayAttr, "") == displayNone {
		l.el.RemoveAttr(displayAttr)
	}
}

// styleProperty looks up a property in an inline CSS declaration list such
// as "display:none;opacity:0.5".
func styleProperty(style, name string) (string, bool) {
	for _, decl := range strings.Split(style, styleSeparator) {
		key, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// setStyleProperty returns style with the property set to value, replacing
// an existing declaration in place or appending a new one.
func setStyleProperty(style, name, value string) string {
	var decls []string
	found := false
	for _, decl := range strings.Split(style, styleSeparator) {
		if strings.TrimSpace(decl) == "" {
			continue
		}
		key, _, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), name) {
			if found {
				continue
			}
			decl = name + ":" + value
			found = true
		}
		decls = append(decls, decl)
	}
	if !found {
		decls = append(decls, name+":"+value)
	}
	return strings.Join(decls, styleSeparator)
}
