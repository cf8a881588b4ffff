package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"brandforgeAPI/internal/types/design"
)

// Editor payloads that went through a serialization round-trip can carry
// style values boxed as {"intValue": "200"} instead of the bare primitive.
var boxedValueKeys = []string{"intValue", "doubleValue", "floatValue", "stringValue", "dateValue"}

// UnwrapValue reduces a possibly-boxed style value to its primitive. Unknown
// wrapper shapes unwrap to the empty string: malformed styling degrades
// visually, it never aborts a render.
func UnwrapValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for _, key := range boxedValueKeys {
		if inner, ok := m[key]; ok {
			return inner
		}
	}
	return ""
}

// Translate flattens a style/effect bag into an inline declaration list.
// A nil or empty bag yields "". Keys are emitted in sorted order so the
// synthesized markup is byte-stable for identical input.
func Translate(bag map[string]any, kind design.ElementType) string {
	if len(bag) == 0 {
		return ""
	}

	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		value := UnwrapValue(bag[key])
		if value == nil {
			continue
		}
		// Objects that survived unwrapping have no inline representation.
		if _, isMap := value.(map[string]any); isMap {
			continue
		}
		if _, isSlice := value.([]any); isSlice {
			continue
		}
		text := formatValue(value)
		if text == "" {
			continue
		}

		switch key {
		case "cornerRadius":
			// Unit is implicit and always pixels.
			writeDecl(&b, "border-radius", text+"px")
		case "fontSize":
			if isNumericLike(text) {
				text += "px"
			}
			writeDecl(&b, "font-size", text)
		case "zIndex":
			writeDecl(&b, "z-index", text)
		case "width", "height":
			if kind == design.ElementImage && isNumericLike(text) {
				text += "px"
			}
			writeDecl(&b, key, text)
		default:
			writeDecl(&b, camelToKebab(key), text)
		}
	}
	return b.String()
}

func writeDecl(b *strings.Builder, prop, value string) {
	b.WriteString(prop)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("; ")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode to float64; keep integers unit-friendly.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func isNumericLike(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func camelToKebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
