// Package css holds typed style values and the standard value parsers which
// turn a single declaration token into such value.
package css

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Type tells which fields of Value are meaningful.
type Type int

const (
	TypeKeyword  Type = iota // Keyword
	TypeNumber               // Number
	TypeLength               // Number + Unit (Unit may be empty for 0)
	TypePercent              // Number, always percent
	TypeColor                // Color + Alpha
	TypeString               // Text
	TypeFunction             // Keyword is function name, Raw is complete call
	TypeList                 // List of comma separated values
	TypeRaw                  // Raw only, value was not interpreted
)

func (t Type) String() string {
	switch t {
	case TypeKeyword:
		return "keyword"
	case TypeNumber:
		return "number"
	case TypeLength:
		return "length"
	case TypePercent:
		return "percent"
	case TypeColor:
		return "color"
	case TypeString:
		return "string"
	case TypeFunction:
		return "function"
	case TypeList:
		return "list"
	case TypeRaw:
		return "raw"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Value represents a parsed property value.
type Value struct {
	Type    Type
	Raw     string         // Original token (e.g., "1.2em", "bold", "#ff0000")
	Number  float64        // Numeric value if applicable
	Unit    string         // Unit if applicable: "em", "px", "pt", etc.
	Keyword string         // Keyword if applicable: "bold", "italic", "center", etc.
	Text    string         // Unquoted text for strings
	Color   colorful.Color // Color components in 0..1 range
	Alpha   float64        // Color opacity in 0..1 range
	List    []Value        // Items of comma separated list
}

// IsNumeric returns true if the value has a numeric component.
func (v Value) IsNumeric() bool {
	switch v.Type {
	case TypeNumber, TypeLength, TypePercent:
		return true
	}
	return false
}

// IsKeyword returns true if the value is a keyword.
func (v Value) IsKeyword() bool {
	return v.Type == TypeKeyword
}

// Is checks if value is the given keyword, case is ignored.
func (v Value) Is(keyword string) bool {
	return v.Type == TypeKeyword && strings.EqualFold(v.Keyword, keyword)
}

// RGBA255 returns color components as bytes.
func (v Value) RGBA255() (r, g, b, a uint8) {
	r, g, b = v.Color.RGB255()
	return r, g, b, uint8(math.Round(v.Alpha * 255))
}

// String returns canonical text of the value which is accepted back by the
// parser that produced it.
func (v Value) String() string {
	switch v.Type {
	case TypeKeyword:
		return v.Keyword
	case TypeNumber:
		return formatNumber(v.Number)
	case TypeLength:
		return formatNumber(v.Number) + v.Unit
	case TypePercent:
		return formatNumber(v.Number) + "%"
	case TypeColor:
		if v.Keyword != "" {
			return v.Keyword
		}
		if v.Alpha >= 1 {
			return v.Color.Hex()
		}
		r, g, b, _ := v.RGBA255()
		return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, formatNumber(math.Round(v.Alpha*1000)/1000))
	case TypeString:
		return `"` + EscapeDoubleQuoted(v.Text) + `"`
	case TypeList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return strings.Join(parts, ", ")
	default:
		return v.Raw
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// EscapeDoubleQuoted escapes a string for use inside CSS double quotes.
// Backslashes and double quotes are escaped per CSS syntax: \" and \\.
func EscapeDoubleQuoted(s string) string {
	// Fast path: nothing to escape.
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Unquote removes surrounding quotes from a string and resolves escaped
// quotes and backslashes.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '"' && q != '\'') || s[len(s)-1] != q {
		return s
	}
	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
