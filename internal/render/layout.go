package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"brandforgeAPI/internal/types/design"
)

// DefaultFontFamily is the fallback applied when a text element names none.
const DefaultFontFamily = "Poppins"

// Inner content nodes carry only font-related keys so the auto-fit pass can
// shrink the font without disturbing the element's footprint. Everything
// else stays on the outer positioned box.
var fontStyleKeys = map[string]bool{
	"color":          true,
	"fontSize":       true,
	"fontWeight":     true,
	"fontFamily":     true,
	"fontStyle":      true,
	"lineHeight":     true,
	"letterSpacing":  true,
	"textTransform":  true,
	"textAlign":      true,
	"whiteSpace":     true,
	"textDecoration": true,
	"textShadow":     true,
}

var verticalAlignMap = map[string]string{
	"top":    "flex-start",
	"middle": "center",
	"bottom": "flex-end",
}

var blurFilterPattern = regexp.MustCompile(`blur\(\s*([0-9.]+)px\s*\)`)

var svgOpenTagPattern = regexp.MustCompile(`<svg\b[^>]*>`)
var svgSizeAttrPattern = regexp.MustCompile(`\s(?:width|height)="[^"]*"`)

// BackdropBlur remaps an editor blur(Npx) filter string onto the overlay's
// backdrop blur radius. The overlay hosts the blur so mask edges stay crisp.
func BackdropBlur(effects map[string]any) (float64, bool) {
	for _, key := range []string{"filter", "blur"} {
		raw := UnwrapValue(effects[key])
		s, ok := raw.(string)
		if !ok {
			continue
		}
		m := blurFilterPattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return (n / 50.0) * 2.0, true
	}
	return 0, false
}

// nonFilterEffects strips the keys consumed by the backdrop-blur remap so
// the remaining effect toggles can be translated inline.
func nonFilterEffects(effects map[string]any) map[string]any {
	if len(effects) == 0 {
		return nil
	}
	out := make(map[string]any, len(effects))
	for k, v := range effects {
		if k == "filter" || k == "blur" {
			continue
		}
		out[k] = v
	}
	return out
}

func splitTextStyles(styles map[string]any) (outer, inner map[string]any) {
	outer = make(map[string]any)
	inner = make(map[string]any)
	for k, v := range styles {
		if fontStyleKeys[k] {
			inner[k] = v
			continue
		}
		if k == "verticalAlign" {
			// Consumed by the flex container below, not emitted verbatim.
			continue
		}
		outer[k] = v
	}
	return outer, inner
}

func elementPosition(el *design.Element) string {
	return fmt.Sprintf("position: absolute; left: %spx; top: %spx; ",
		trimFloat(el.Position.X), trimFloat(el.Position.Y))
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// textBlock wraps the text in an outer flex box plus an inner font-only
// span tagged for the auto-fit script.
func textBlock(el *design.Element) string {
	outerBag, innerBag := splitTextStyles(el.Styles)

	align := "flex-start"
	if raw, ok := el.Styles["verticalAlign"]; ok {
		if s, ok := UnwrapValue(raw).(string); ok {
			if mapped, ok := verticalAlignMap[s]; ok {
				align = mapped
			}
		}
	}

	inner := Translate(innerBag, el.Type)
	if !strings.Contains(inner, "font-family") {
		inner += "font-family: '" + DefaultFontFamily + "', sans-serif; "
	}

	var b strings.Builder
	b.WriteString(`<div id="el-` + html.EscapeString(el.ID) + `" style="`)
	b.WriteString(elementPosition(el))
	b.WriteString("display: flex; align-items: " + align + "; ")
	b.WriteString(Translate(outerBag, el.Type))
	b.WriteString(Translate(el.Effects, el.Type))
	b.WriteString(`"><span data-autofit style="`)
	b.WriteString(inner)
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(el.Props.Text))
	b.WriteString(`</span></div>`)
	return b.String()
}

// imageBlock renders a positioned bitmap, clipped through the mask table
// when the element names a mask. A translucent overlay is stacked above the
// image either way to host post-process filters. Blur effects are remapped
// onto the overlay's backdrop; every other effect applies to the wrapper.
func imageBlock(el *design.Element, shapes *ShapeTable) string {
	var b strings.Builder
	b.WriteString(`<div id="el-` + html.EscapeString(el.ID) + `" style="`)
	b.WriteString(elementPosition(el))
	b.WriteString(Translate(el.Styles, el.Type))
	b.WriteString(Translate(nonFilterEffects(el.Effects), el.Type))
	b.WriteString(`">`)

	clip := ""
	if el.Props.Mask != "" && shapes != nil {
		if primitive, ok := shapes.ClipPrimitive(el.Props.Mask); ok {
			clip = primitive
		}
	}

	src := html.EscapeString(el.Props.Src)
	if clip != "" {
		// Full-bleed bitmap in a 100x100 user space; the mask shape is
		// stretched to the element's actual box, not the clip geometry.
		clipID := "clip-" + html.EscapeString(el.ID)
		b.WriteString(`<svg viewBox="0 0 100 100" preserveAspectRatio="none" width="100%" height="100%" style="display: block;">`)
		b.WriteString(`<defs><clipPath id="` + clipID + `">` + clip + `</clipPath></defs>`)
		b.WriteString(`<image href="` + src + `" x="0" y="0" width="100" height="100" preserveAspectRatio="none" clip-path="url(#` + clipID + `)"/>`)
		b.WriteString(`</svg>`)
	} else {
		b.WriteString(`<img src="` + src + `" style="width: 100%; height: 100%; display: block;"/>`)
	}

	b.WriteString(`<div style="position: absolute; left: 0; top: 0; width: 100%; height: 100%; pointer-events: none; `)
	if radius, ok := BackdropBlur(el.Effects); ok && radius > 0 {
		b.WriteString(fmt.Sprintf("backdrop-filter: blur(%spx); ", trimFloat(radius)))
	}
	b.WriteString(`"></div></div>`)
	return b.String()
}

// shapeBlock embeds the element's raw vector fragment, stripping intrinsic
// sizing so the container's box determines rendered size.
func shapeBlock(el *design.Element) string {
	fragment := ""
	if el.Props.SVG != nil {
		fragment = forceFullBleed(el.Props.SVG.SVG)
	}

	var b strings.Builder
	b.WriteString(`<div id="el-` + html.EscapeString(el.ID) + `" style="`)
	b.WriteString(elementPosition(el))
	b.WriteString(Translate(el.Styles, el.Type))
	b.WriteString(Translate(el.Effects, el.Type))
	b.WriteString(`">`)
	b.WriteString(fragment)
	b.WriteString(`</div>`)
	return b.String()
}

// forceFullBleed rewrites the root svg tag to fill its container.
func forceFullBleed(svg string) string {
	return svgOpenTagPattern.ReplaceAllStringFunc(svg, func(tag string) string {
		tag = svgSizeAttrPattern.ReplaceAllString(tag, "")
		if !strings.Contains(tag, "preserveAspectRatio") {
			tag = strings.TrimSuffix(tag, ">") + ` preserveAspectRatio="none">`
		}
		return strings.TrimSuffix(tag, ">") + ` width="100%" height="100%">`
	})
}

// ElementBlock dispatches on the element type. Hidden elements yield no
// markup at all.
func ElementBlock(el *design.Element, shapes *ShapeTable) string {
	if !el.Visible {
		return ""
	}
	switch el.Type {
	case design.ElementText:
		return textBlock(el)
	case design.ElementImage:
		return imageBlock(el, shapes)
	case design.ElementShape:
		return shapeBlock(el)
	default:
		return ""
	}
}

// FontFamilies collects the distinct font families a document references,
// in first-use order, for the web font loader.
func FontFamilies(doc *design.Document) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		name = strings.Trim(name, `'" `)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, el := range doc.Elements {
		if el.Type != design.ElementText {
			continue
		}
		if raw, ok := el.Styles["fontFamily"]; ok {
			if s, ok := UnwrapValue(raw).(string); ok {
				add(s)
				continue
			}
		}
		add(DefaultFontFamily)
	}
	return out
}
