package render

import (
	"fmt"
	"sort"
	"strings"

	"brandforgeAPI/internal/types/design"
)

// PreviewMaxDimension caps the scaled preview canvas per axis.
const PreviewMaxDimension = 600

// SynthesizeOptions selects the canvas sizing context. Preview scales the
// canvas for on-screen display; production keeps the literal dimensions so
// the capture viewport matches the document pixel for pixel.
type SynthesizeOptions struct {
	Preview bool
}

// PreviewScale returns the display size for one canvas axis.
func PreviewScale(dim int) int {
	scaled := dim / 3
	if scaled > PreviewMaxDimension {
		return PreviewMaxDimension
	}
	return scaled
}

// effectiveZIndex reads an element's explicit z-index, defaulting to zero.
// Explicit z-index is authoritative; array order breaks ties via the stable
// sort in Synthesize.
func effectiveZIndex(el *design.Element) float64 {
	raw, ok := el.Styles["zIndex"]
	if !ok {
		return 0
	}
	switch v := UnwrapValue(raw).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f
		}
	}
	return 0
}

// autoFitScript shrinks every tagged text node by 1px steps, down to a
// 0.1px floor, until it fits its container, then flips document.title to
// the ready sentinel the renderer polls for. It runs after web fonts settle
// so measurements use the final glyphs.
const autoFitScript = `<script>
(function () {
  var done = false;
  function fit() {
    if (done) { return; }
    done = true;
    var nodes = document.querySelectorAll('[data-autofit]');
    for (var i = 0; i < nodes.length; i++) {
      var node = nodes[i];
      var box = node.parentElement;
      var size = parseFloat(window.getComputedStyle(node).fontSize) || 16;
      var minHeight = parseFloat(window.getComputedStyle(box).minHeight) || box.clientHeight;
      while (size > 0.1 && (node.scrollHeight > minHeight || node.scrollWidth > box.clientWidth)) {
        size = size - 1;
        if (size < 0.1) { size = 0.1; }
        node.style.fontSize = size + 'px';
      }
    }
    document.title = 'render-ready';
  }
  if (window.WebFont) {
    WebFont.load({ google: { families: __FAMILIES__ }, active: fit, inactive: fit });
    setTimeout(fit, 4000);
  } else {
    if (document.readyState === 'complete') { fit(); } else { window.addEventListener('load', fit); }
    setTimeout(fit, 4000);
  }
})();
</script>`

// Synthesize assembles the whole document into one self-contained markup
// page. It is a pure function of its input: identical documents yield
// byte-identical markup.
func Synthesize(doc *design.Document, shapes *ShapeTable, opts SynthesizeOptions) string {
	width, height := doc.Canvas.Width, doc.Canvas.Height
	if opts.Preview {
		width, height = PreviewScale(width), PreviewScale(height)
	}

	// z-index is authoritative when present; the stable sort keeps array
	// order for equal values.
	ordered := make([]*design.Element, len(doc.Elements))
	for i := range doc.Elements {
		ordered[i] = &doc.Elements[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return effectiveZIndex(ordered[i]) < effectiveZIndex(ordered[j])
	})

	families := FontFamilies(doc)
	familyList := make([]string, len(families))
	for i, f := range families {
		familyList[i] = `"` + f + `"`
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">")
	b.WriteString(`<script src="https://ajax.googleapis.com/ajax/libs/webfont/1.6.26/webfont.js"></script>`)
	b.WriteString(`<style>html, body { margin: 0; padding: 0; }</style>`)
	b.WriteString("</head>")

	b.WriteString(`<body style="`)
	b.WriteString(Translate(doc.Canvas.Styles, ""))
	b.WriteString(`">`)

	b.WriteString(fmt.Sprintf(
		`<div id="canvas" style="position: relative; overflow: hidden; width: %dpx; height: %dpx;">`,
		width, height))
	for _, el := range ordered {
		b.WriteString(ElementBlock(el, shapes))
	}
	b.WriteString("</div>")

	b.WriteString(strings.Replace(autoFitScript, "__FAMILIES__",
		"["+strings.Join(familyList, ", ")+"]", 1))
	b.WriteString("</body></html>")
	return b.String()
}
