package design

import (
	"encoding/json"
	"time"
)

type ElementType string

const (
	ElementText  ElementType = "text"
	ElementImage ElementType = "image"
	ElementShape ElementType = "shape"
)

type DocumentType string

const (
	DocTemplate DocumentType = "template"
	DocSlogan   DocumentType = "slogan"
	DocBranding DocumentType = "branding"
	DocImage    DocumentType = "image"
)

// BackgroundKey is the reserved upload key for the document background.
// Uploaded files are keyed either by an element id or by this value.
const BackgroundKey = "background"

type Canvas struct {
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	AspectLabel string         `json:"aspectLabel,omitempty"`
	Styles      map[string]any `json:"styles,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SVGFragment struct {
	SVG string `json:"svg"`
}

// Props carries the per-type payload of an element. Exactly the fields
// matching Element.Type are meaningful; the rest stay zero.
type Props struct {
	// text
	Text string `json:"text,omitempty"`

	// image
	Src         string `json:"src,omitempty"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	OriginalSrc string `json:"originalSrc,omitempty"`
	Mask        string `json:"mask,omitempty"`

	// shape
	SVG *SVGFragment `json:"svg,omitempty"`
}

type Element struct {
	ID       string         `json:"id"`
	Type     ElementType    `json:"type"`
	Category string         `json:"category,omitempty"`
	Position Position       `json:"position"`
	Styles   map[string]any `json:"styles,omitempty"`
	Effects  map[string]any `json:"effects,omitempty"`
	Props    Props          `json:"props"`
	Visible  bool           `json:"visible"`
	Locked   bool           `json:"locked"`
}

// Layer is the editor's layer-panel view of an element. Render order is the
// element array order, not the layer order.
type Layer struct {
	ID        string `json:"id"`
	ElementID string `json:"elementId"`
	Visible   bool   `json:"visible"`
	Locked    bool   `json:"locked"`
}

type BackgroundType string

const (
	BackgroundColor BackgroundType = "color"
	BackgroundImage BackgroundType = "image"
	BackgroundVideo BackgroundType = "video"
)

type Background struct {
	Type  BackgroundType `json:"type"`
	Color string         `json:"color,omitempty"`
	Src   string         `json:"src,omitempty"`
}

// Document is one renderable visual: a canvas plus its ordered elements,
// the layer view, and the background.
type Document struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId,omitempty"`
	DomainID    string       `json:"domainId,omitempty"`
	PostID      string       `json:"postId,omitempty"`
	Type        DocumentType `json:"type"`
	Canvas      Canvas       `json:"canvas"`
	Elements    []Element    `json:"elements"`
	Layers      []Layer      `json:"layers,omitempty"`
	Backgrounds Background   `json:"backgrounds"`
	Version     int          `json:"version"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the document. Templates are cloned before any
// per-post mutation so the stored template stays untouched.
func (d *Document) Clone() *Document {
	// The model round-trips through JSON anyway (editor payloads, JSONB
	// storage), so serialization is the safe way to deep-copy the open
	// style/effect maps.
	raw, err := json.Marshal(d)
	if err != nil {
		copy := *d
		return &copy
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		copy := *d
		return &copy
	}
	return &out
}

// ElementByID returns a pointer into the document's element slice, or nil.
func (d *Document) ElementByID(id string) *Element {
	for i := range d.Elements {
		if d.Elements[i].ID == id {
			return &d.Elements[i]
		}
	}
	return nil
}

// ElementsByCategory returns pointers to every element carrying the given
// semantic category tag.
func (d *Document) ElementsByCategory(category string) []*Element {
	var out []*Element
	for i := range d.Elements {
		if d.Elements[i].Category == category {
			out = append(out, &d.Elements[i])
		}
	}
	return out
}

// OwnedAssetURLs returns the distinct asset URLs this document exclusively
// owns: every image element src plus the background src.
func (d *Document) OwnedAssetURLs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, el := range d.Elements {
		if el.Type == ElementImage && el.Props.Src != "" && !seen[el.Props.Src] {
			seen[el.Props.Src] = true
			out = append(out, el.Props.Src)
		}
	}
	if d.Backgrounds.Src != "" && !seen[d.Backgrounds.Src] {
		out = append(out, d.Backgrounds.Src)
	}
	return out
}

// SyncCanvasBackground keeps canvas.styles in line with the background
// record. The renderer only reads canvas.styles, so the save path maintains
// this denormalization.
func (d *Document) SyncCanvasBackground() {
	if d.Canvas.Styles == nil {
		d.Canvas.Styles = make(map[string]any)
	}
	delete(d.Canvas.Styles, "backgroundImage")
	delete(d.Canvas.Styles, "backgroundVideo")
	switch d.Backgrounds.Type {
	case BackgroundColor:
		if d.Backgrounds.Color != "" {
			d.Canvas.Styles["backgroundColor"] = d.Backgrounds.Color
		}
	case BackgroundImage:
		if d.Backgrounds.Src != "" {
			d.Canvas.Styles["backgroundImage"] = "url(" + d.Backgrounds.Src + ")"
		}
	case BackgroundVideo:
		if d.Backgrounds.Src != "" {
			d.Canvas.Styles["backgroundVideo"] = d.Backgrounds.Src
		}
	}
}
