package render

import (
	"strings"
	"testing"

	"brandforgeAPI/internal/types/design"
)

func TestClipPrimitivePrecedence(t *testing.T) {
	table := NewShapeTable([]MaskShape{
		{ID: "both", SVG: `<svg viewBox="0 0 100 100"><rect x="0" y="0" width="100" height="100"/><path d="M0 0 L100 100 Z"/></svg>`},
	})

	primitive, ok := table.ClipPrimitive("both")
	if !ok {
		t.Fatal("expected a primitive for shape 'both'")
	}
	if !strings.HasPrefix(primitive, "<path") {
		t.Errorf("path must win over rect, got %q", primitive)
	}
}

func TestClipPrimitiveRectCarriesRadius(t *testing.T) {
	table := DefaultShapeTable()
	primitive, ok := table.ClipPrimitive("rounded")
	if !ok {
		t.Fatal("expected the rounded shape to resolve")
	}
	if !strings.Contains(primitive, `rx="18"`) {
		t.Errorf("rect corner radius attributes must survive extraction, got %q", primitive)
	}
}

func TestClipPrimitiveUnknownMask(t *testing.T) {
	if _, ok := DefaultShapeTable().ClipPrimitive("no-such-shape"); ok {
		t.Error("unknown mask ids must not resolve")
	}
}

func TestBackdropBlurRemap(t *testing.T) {
	radius, ok := BackdropBlur(map[string]any{"filter": "blur(25px)"})
	if !ok {
		t.Fatal("expected a blur radius")
	}
	if radius != 1.0 {
		t.Errorf("blur(25px) should remap to 1.0, got %v", radius)
	}

	if _, ok := BackdropBlur(map[string]any{"filter": "grayscale(1)"}); ok {
		t.Error("non-blur filters must not produce a backdrop radius")
	}
	if _, ok := BackdropBlur(nil); ok {
		t.Error("nil effects must not produce a backdrop radius")
	}
}

func TestTextBlockSplitsFontAndLayoutKeys(t *testing.T) {
	el := &design.Element{
		ID:   "headline",
		Type: design.ElementText,
		Styles: map[string]any{
			"color":         "#fff",
			"width":         float64(400),
			"verticalAlign": "bottom",
		},
		Props:   design.Props{Text: "Hello"},
		Visible: true,
	}

	block := ElementBlock(el, nil)

	spanStart := strings.Index(block, "<span")
	if spanStart < 0 {
		t.Fatal("text block should contain an inner span")
	}
	outer, inner := block[:spanStart], block[spanStart:]

	if !strings.Contains(outer, "width: 400; ") {
		t.Errorf("layout keys belong on the outer box: %q", outer)
	}
	if strings.Contains(outer, "color") {
		t.Errorf("font keys must not leak onto the outer box: %q", outer)
	}
	if !strings.Contains(inner, "color: #fff; ") {
		t.Errorf("font keys belong on the inner span: %q", inner)
	}
	if !strings.Contains(outer, "align-items: flex-end") {
		t.Errorf("verticalAlign bottom should map to flex-end: %q", outer)
	}
	if !strings.Contains(inner, "data-autofit") {
		t.Error("inner span must be tagged for the auto-fit pass")
	}
	if !strings.Contains(inner, "font-family: 'Poppins'") {
		t.Error("missing font family must fall back to Poppins")
	}
}

func TestMaskedImageBlock(t *testing.T) {
	el := &design.Element{
		ID:       "photo",
		Type:     design.ElementImage,
		Styles:   map[string]any{"width": float64(512), "height": float64(512)},
		Props:    design.Props{Src: "https://cdn.example.com/a.png", Mask: "circle"},
		Visible:  true,
		Category: "stockImage",
	}

	block := ElementBlock(el, DefaultShapeTable())

	if !strings.Contains(block, `viewBox="0 0 100 100"`) {
		t.Error("masked image must render in a 100x100 user space")
	}
	if !strings.Contains(block, `preserveAspectRatio="none"`) {
		t.Error("masked image must stretch, not preserve aspect")
	}
	if !strings.Contains(block, `clip-path="url(#clip-photo)"`) {
		t.Error("masked image must reference its clip path")
	}
	if !strings.Contains(block, "<circle") {
		t.Error("circle mask should emit a circle primitive")
	}
}

func TestUnmaskedImageBlockKeepsOverlay(t *testing.T) {
	el := &design.Element{
		ID:      "plain",
		Type:    design.ElementImage,
		Props:   design.Props{Src: "https://cdn.example.com/b.png"},
		Effects: map[string]any{"filter": "blur(50px)"},
		Visible: true,
	}

	block := ElementBlock(el, DefaultShapeTable())

	if !strings.Contains(block, "<img src=") {
		t.Error("unmasked images render as plain bitmaps")
	}
	if !strings.Contains(block, "backdrop-filter: blur(2px); ") {
		t.Errorf("blur(50px) should remap to a 2px backdrop blur: %q", block)
	}
}

func TestImageBlockTranslatesNonFilterEffects(t *testing.T) {
	el := &design.Element{
		ID:   "framed",
		Type: design.ElementImage,
		Props: design.Props{
			Src: "https://cdn.example.com/c.png",
		},
		Effects: map[string]any{
			"cornerRadius": float64(12),
			"boxShadow":    "0 2px 6px rgba(0,0,0,0.4)",
			"filter":       "blur(25px)",
		},
		Visible: true,
	}

	block := ElementBlock(el, DefaultShapeTable())

	if !strings.Contains(block, "border-radius: 12px; ") {
		t.Errorf("corner radius effect must reach the image wrapper: %q", block)
	}
	if !strings.Contains(block, "box-shadow: 0 2px 6px rgba(0,0,0,0.4); ") {
		t.Errorf("shadow effect must reach the image wrapper: %q", block)
	}
	if !strings.Contains(block, "backdrop-filter: blur(1px); ") {
		t.Errorf("blur stays a backdrop remap on the overlay: %q", block)
	}
	if strings.Contains(block, "filter: blur(25px)") {
		t.Errorf("the raw filter string must not leak inline: %q", block)
	}
}

func TestShapeBlockStripsIntrinsicSizing(t *testing.T) {
	el := &design.Element{
		ID:   "deco",
		Type: design.ElementShape,
		Props: design.Props{SVG: &design.SVGFragment{
			SVG: `<svg width="24" height="24" viewBox="0 0 24 24"><path d="M0 0h24v24H0z"/></svg>`,
		}},
		Visible: true,
	}

	block := ElementBlock(el, nil)

	if strings.Contains(block, `width="24"`) {
		t.Errorf("intrinsic sizing must be stripped: %q", block)
	}
	if !strings.Contains(block, `width="100%" height="100%"`) {
		t.Errorf("shape must fill its container: %q", block)
	}
}

func TestHiddenElementsEmitNothing(t *testing.T) {
	el := &design.Element{ID: "gone", Type: design.ElementText, Props: design.Props{Text: "x"}}
	if got := ElementBlock(el, nil); got != "" {
		t.Errorf("hidden elements must not render, got %q", got)
	}
}

func TestFontFamilies(t *testing.T) {
	doc := &design.Document{
		Elements: []design.Element{
			{ID: "a", Type: design.ElementText, Styles: map[string]any{"fontFamily": "'Roboto'"}, Visible: true},
			{ID: "b", Type: design.ElementText, Visible: true},
			{ID: "c", Type: design.ElementImage, Visible: true},
		},
	}
	got := FontFamilies(doc)
	if len(got) != 2 || got[0] != "Roboto" || got[1] != DefaultFontFamily {
		t.Errorf("unexpected font family set %v", got)
	}
}
