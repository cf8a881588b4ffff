package render

import (
	"strings"
	"testing"

	"brandforgeAPI/internal/types/design"
)

func sampleDocument() *design.Document {
	return &design.Document{
		Canvas: design.Canvas{
			Width:  1200,
			Height: 630,
			Styles: map[string]any{"backgroundColor": "#16213e"},
		},
		Elements: []design.Element{
			{
				ID:       "slogan",
				Type:     design.ElementText,
				Category: "slogan",
				Position: design.Position{X: 100, Y: 165},
				Styles:   map[string]any{"fontSize": float64(68), "width": float64(1000)},
				Props:    design.Props{Text: "Ship faster"},
				Visible:  true,
			},
			{
				ID:      "logo",
				Type:    design.ElementImage,
				Props:   design.Props{Src: "https://cdn.example.com/logo.png", Mask: "circle"},
				Visible: true,
			},
		},
		Backgrounds: design.Background{Type: design.BackgroundColor, Color: "#16213e"},
	}
}

func TestSynthesizeIsPure(t *testing.T) {
	doc := sampleDocument()
	shapes := DefaultShapeTable()

	first := Synthesize(doc, shapes, SynthesizeOptions{})
	for i := 0; i < 10; i++ {
		if got := Synthesize(doc, shapes, SynthesizeOptions{}); got != first {
			t.Fatal("synthesis must be byte-identical across repeated calls")
		}
	}
}

func TestSynthesizeCanvasSizing(t *testing.T) {
	doc := sampleDocument()
	shapes := DefaultShapeTable()

	full := Synthesize(doc, shapes, SynthesizeOptions{})
	if !strings.Contains(full, "width: 1200px; height: 630px;") {
		t.Error("production markup must use the literal canvas dimensions")
	}

	preview := Synthesize(doc, shapes, SynthesizeOptions{Preview: true})
	if !strings.Contains(preview, "width: 400px; height: 210px;") {
		t.Error("preview markup must scale the canvas by a third")
	}
}

func TestPreviewScaleCap(t *testing.T) {
	if got := PreviewScale(900); got != 300 {
		t.Errorf("900/3 should scale to 300, got %d", got)
	}
	if got := PreviewScale(3000); got != PreviewMaxDimension {
		t.Errorf("large canvases cap at %d, got %d", PreviewMaxDimension, got)
	}
}

func TestSynthesizeZIndexAuthoritative(t *testing.T) {
	doc := sampleDocument()
	doc.Elements[0].Styles["zIndex"] = float64(5)
	doc.Elements[1].Styles = map[string]any{"zIndex": float64(1)}

	markup := Synthesize(doc, DefaultShapeTable(), SynthesizeOptions{})

	logoAt := strings.Index(markup, `id="el-logo"`)
	sloganAt := strings.Index(markup, `id="el-slogan"`)
	if logoAt < 0 || sloganAt < 0 {
		t.Fatal("both elements must be present in the markup")
	}
	if logoAt > sloganAt {
		t.Error("lower z-index must be emitted first regardless of array order")
	}
}

func TestSynthesizeArrayOrderBreaksTies(t *testing.T) {
	doc := sampleDocument()
	markup := Synthesize(doc, DefaultShapeTable(), SynthesizeOptions{})

	sloganAt := strings.Index(markup, `id="el-slogan"`)
	logoAt := strings.Index(markup, `id="el-logo"`)
	if sloganAt > logoAt {
		t.Error("without explicit z-index, array order decides stacking")
	}
}

func TestSynthesizeCarriesAutoFitScript(t *testing.T) {
	markup := Synthesize(sampleDocument(), DefaultShapeTable(), SynthesizeOptions{})

	if !strings.Contains(markup, "data-autofit") {
		t.Error("text elements must be tagged for the auto-fit pass")
	}
	if !strings.Contains(markup, "size = size - 1") {
		t.Error("the auto-fit script must shrink in 1px steps")
	}
	if !strings.Contains(markup, "0.1") {
		t.Error("the auto-fit script must floor at 0.1px")
	}
	if !strings.Contains(markup, "document.title = 'render-ready'") {
		t.Error("the script must flip the ready sentinel the renderer polls for")
	}
	if !strings.Contains(markup, "webfont.js") {
		t.Error("fonts must load through the web font loader")
	}
}

func TestSynthesizeBodyCarriesCanvasStyles(t *testing.T) {
	markup := Synthesize(sampleDocument(), DefaultShapeTable(), SynthesizeOptions{})
	if !strings.Contains(markup, `<body style="background-color: #16213e; ">`) {
		t.Errorf("body must carry the canvas background styles")
	}
}
