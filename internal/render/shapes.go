package render

import (
	"regexp"
)

// MaskShape pairs a mask identifier with its vector markup. All shapes are
// drawn in a 100x100 user space so the element's own box stretches them.
type MaskShape struct {
	ID  string
	SVG string
}

// ShapeTable resolves mask identifiers against the fixed shape definitions.
// Loaded once at startup and shared read-only across concurrent renders.
type ShapeTable struct {
	byID map[string]MaskShape
}

// defaultShapes mirrors the editor's built-in mask palette.
var defaultShapes = []MaskShape{
	{ID: "circle", SVG: `<svg viewBox="0 0 100 100"><circle cx="50" cy="50" r="50"/></svg>`},
	{ID: "ellipse", SVG: `<svg viewBox="0 0 100 100"><ellipse cx="50" cy="50" rx="50" ry="35"/></svg>`},
	{ID: "square", SVG: `<svg viewBox="0 0 100 100"><rect x="0" y="0" width="100" height="100"/></svg>`},
	{ID: "rounded", SVG: `<svg viewBox="0 0 100 100"><rect x="0" y="0" width="100" height="100" rx="18" ry="18"/></svg>`},
	{ID: "triangle", SVG: `<svg viewBox="0 0 100 100"><polygon points="50,0 100,100 0,100"/></svg>`},
	{ID: "diamond", SVG: `<svg viewBox="0 0 100 100"><polygon points="50,0 100,50 50,100 0,50"/></svg>`},
	{ID: "hexagon", SVG: `<svg viewBox="0 0 100 100"><polygon points="25,0 75,0 100,50 75,100 25,100 0,50"/></svg>`},
	{ID: "star", SVG: `<svg viewBox="0 0 100 100"><polygon points="50,0 61,35 98,35 68,57 79,91 50,70 21,91 32,57 2,35 39,35"/></svg>`},
	{ID: "blob", SVG: `<svg viewBox="0 0 100 100"><path d="M83.5 18.6c8.7 10.5 12.4 25.5 8.4 38.2-4 12.6-15.7 22.8-28.9 27.9-13.2 5-27.9 4.8-38.7-2C13.5 75.9 6.6 63 5.5 49.8 4.4 36.7 9.1 23.3 18.6 14 28.1 4.8 42.3-.4 55.3 1.5c13 1.9 19.5 6.6 28.2 17.1z"/></svg>`},
	{ID: "wave", SVG: `<svg viewBox="0 0 100 100"><path d="M0 30 Q25 0 50 30 T100 30 V100 H0 Z"/></svg>`},
	{ID: "arch", SVG: `<svg viewBox="0 0 100 100"><path d="M0 100 V50 Q0 0 50 0 Q100 0 100 50 V100 Z"/></svg>`},
	{ID: "slash", SVG: `<svg viewBox="0 0 100 100"><line x1="0" y1="100" x2="100" y2="0"/></svg>`},
}

// Clip primitives in extraction precedence order.
var primitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<path\b[^>]*/?>`),
	regexp.MustCompile(`<polygon\b[^>]*/?>`),
	regexp.MustCompile(`<rect\b[^>]*/?>`),
	regexp.MustCompile(`<circle\b[^>]*/?>`),
	regexp.MustCompile(`<ellipse\b[^>]*/?>`),
	regexp.MustCompile(`<line\b[^>]*/?>`),
}

func NewShapeTable(shapes []MaskShape) *ShapeTable {
	if shapes == nil {
		shapes = defaultShapes
	}
	t := &ShapeTable{byID: make(map[string]MaskShape, len(shapes))}
	for _, s := range shapes {
		t.byID[s.ID] = s
	}
	return t
}

func DefaultShapeTable() *ShapeTable {
	return NewShapeTable(nil)
}

// ClipPrimitive resolves a mask id and extracts the first clip primitive
// from its vector markup, path taking precedence over polygon, rect, circle,
// ellipse, and line in that order. The second return is false when the mask
// id is unknown or its markup carries no usable primitive.
func (t *ShapeTable) ClipPrimitive(maskID string) (string, bool) {
	shape, ok := t.byID[maskID]
	if !ok {
		return "", false
	}
	for _, pat := range primitivePatterns {
		if m := pat.FindString(shape.SVG); m != "" {
			return normalizeSelfClosing(m), true
		}
	}
	return "", false
}

// normalizeSelfClosing makes the extracted tag self-closing so it can be
// dropped into a <clipPath> verbatim.
func normalizeSelfClosing(tag string) string {
	if len(tag) >= 2 && tag[len(tag)-2] == '/' {
		return tag
	}
	return tag[:len(tag)-1] + "/>"
}
