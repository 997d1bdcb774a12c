package css

import (
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// namedColors holds CSS 2.1 color keywords and a few commonly used extras.
var namedColors = map[string][3]uint8{
	"black":   {0, 0, 0},
	"white":   {255, 255, 255},
	"red":     {255, 0, 0},
	"green":   {0, 128, 0},
	"blue":    {0, 0, 255},
	"gray":    {128, 128, 128},
	"grey":    {128, 128, 128},
	"silver":  {192, 192, 192},
	"maroon":  {128, 0, 0},
	"navy":    {0, 0, 128},
	"teal":    {0, 128, 128},
	"olive":   {128, 128, 0},
	"purple":  {128, 0, 128},
	"fuchsia": {255, 0, 255},
	"magenta": {255, 0, 255},
	"aqua":    {0, 255, 255},
	"cyan":    {0, 255, 255},
	"lime":    {0, 255, 0},
	"yellow":  {255, 255, 0},
	"orange":  {255, 165, 0},
	"brown":   {165, 42, 42},
	"pink":    {255, 192, 203},
}

// Color accepts #RGB, #RGBA, #RRGGBB, #RRGGBBAA, rgb(), rgba(), "transparent"
// and named colors.
func Color() Parser {
	return ParserFunc(parseColor)
}

func parseColor(token string) (Value, bool) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Value{}, false
	}
	lower := strings.ToLower(raw)

	if strings.HasPrefix(lower, "#") {
		return parseHexColor(raw, lower[1:])
	}
	if strings.HasPrefix(lower, "rgb(") || strings.HasPrefix(lower, "rgba(") {
		return parseRGBFunction(raw, lower)
	}
	if lower == "transparent" {
		return Value{Type: TypeColor, Raw: raw, Keyword: lower}, true
	}
	if rgb, ok := namedColors[lower]; ok {
		return Value{Type: TypeColor, Raw: raw, Keyword: lower, Color: rgbColor(rgb[0], rgb[1], rgb[2]), Alpha: 1}, true
	}
	return Value{}, false
}

func rgbColor(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

func parseHexColor(raw, hex string) (Value, bool) {
	alpha := "ff"
	switch len(hex) {
	case 3, 4:
		// #RGB(A) -> #RRGGBB(AA)
		var sb strings.Builder
		for i := range len(hex) {
			sb.WriteByte(hex[i])
			sb.WriteByte(hex[i])
		}
		hex = sb.String()
	case 6, 8:
	default:
		return Value{}, false
	}
	if len(hex) == 8 {
		alpha = hex[6:]
		hex = hex[:6]
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return Value{}, false
	}
	a, err := strconv.ParseUint(alpha, 16, 8)
	if err != nil {
		return Value{}, false
	}
	return Value{Type: TypeColor, Raw: raw, Color: c, Alpha: float64(a) / 255}, true
}

func parseRGBFunction(raw, lower string) (Value, bool) {
	if !strings.HasSuffix(lower, ")") {
		return Value{}, false
	}
	inner := lower[strings.IndexByte(lower, '(')+1 : len(lower)-1]
	parts := strings.FieldsFunc(inner, func(r rune) bool {
		return r == ',' || r == '/' || r == ' ' || r == '\t'
	})
	if len(parts) != 3 && len(parts) != 4 {
		return Value{}, false
	}

	var rgb [3]uint8
	for i := range 3 {
		c, ok := colorComponent(parts[i])
		if !ok {
			return Value{}, false
		}
		rgb[i] = c
	}

	alpha := 1.0
	if len(parts) == 4 {
		p := parts[3]
		var err error
		if strings.HasSuffix(p, "%") {
			alpha, err = strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
			alpha /= 100
		} else {
			alpha, err = strconv.ParseFloat(p, 64)
		}
		if err != nil {
			return Value{}, false
		}
		alpha = min(max(alpha, 0), 1)
	}
	return Value{Type: TypeColor, Raw: raw, Color: rgbColor(rgb[0], rgb[1], rgb[2]), Alpha: alpha}, true
}

func colorComponent(s string) (uint8, bool) {
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		return uint8(min(max(f, 0), 100)*255/100 + 0.5), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return uint8(min(max(f, 0), 255) + 0.5), true
}
