package css

import (
	"fmt"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	tcss "github.com/tdewolff/parse/v2/css"
)

// Parser turns a single declaration token into a typed value.
type Parser interface {
	ParseValue(token string) (Value, bool)
}

// ParserFunc is an adapter to allow the use of ordinary functions as parsers.
type ParserFunc func(token string) (Value, bool)

// ParseValue calls f(token).
func (f ParserFunc) ParseValue(token string) (Value, bool) {
	return f(token)
}

var lengthUnits = map[string]struct{}{
	"px": {}, "em": {}, "rem": {}, "ex": {}, "ch": {},
	"pt": {}, "pc": {}, "in": {}, "cm": {}, "mm": {}, "q": {},
	"vw": {}, "vh": {}, "vmin": {}, "vmax": {}, "dp": {},
}

// lexSingle reports the type of the only CSS token in s.
func lexSingle(s string) (tcss.TokenType, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return tcss.ErrorToken, "", false
	}
	l := tcss.NewLexer(parse.NewInputString(s))
	tt, data := l.Next()
	if tt == tcss.ErrorToken {
		return tt, "", false
	}
	text := string(data)
	if next, _ := l.Next(); next != tcss.ErrorToken {
		return tt, text, false
	}
	return tt, text, true
}

// splitNumber separates numeric prefix from the unit.
func splitNumber(s string) (float64, string, bool) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	// exponent, but only when followed by a digit: "1e3" vs "1em"
	if end+1 < len(s) && (s[end] == 'e' || s[end] == 'E') {
		i := end + 1
		if s[i] == '+' || s[i] == '-' {
			i++
		}
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			end = i
		}
	}
	num, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, "", false
	}
	return num, strings.ToLower(s[end:]), true
}

// Number accepts plain numbers: "1", "-0.5", "1e3".
func Number() Parser {
	return ParserFunc(func(token string) (Value, bool) {
		tt, text, ok := lexSingle(token)
		if !ok || tt != tcss.NumberToken {
			return Value{}, false
		}
		num, _, ok := splitNumber(text)
		if !ok {
			return Value{}, false
		}
		return Value{Type: TypeNumber, Raw: text, Number: num}, true
	})
}

// Length accepts dimensions with known length units and unitless zero.
func Length() Parser {
	return ParserFunc(parseLength)
}

func parseLength(token string) (Value, bool) {
	tt, text, ok := lexSingle(token)
	if !ok {
		return Value{}, false
	}
	switch tt {
	case tcss.DimensionToken:
		num, unit, ok := splitNumber(text)
		if !ok {
			return Value{}, false
		}
		if _, known := lengthUnits[unit]; !known {
			return Value{}, false
		}
		return Value{Type: TypeLength, Raw: text, Number: num, Unit: unit}, true
	case tcss.NumberToken:
		num, _, ok := splitNumber(text)
		if !ok || num != 0 {
			return Value{}, false
		}
		return Value{Type: TypeLength, Raw: text}, true
	}
	return Value{}, false
}

// Percent accepts percentages: "50%".
func Percent() Parser {
	return ParserFunc(parsePercent)
}

func parsePercent(token string) (Value, bool) {
	tt, text, ok := lexSingle(token)
	if !ok || tt != tcss.PercentageToken {
		return Value{}, false
	}
	num, _, ok := splitNumber(strings.TrimSuffix(text, "%"))
	if !ok {
		return Value{}, false
	}
	return Value{Type: TypePercent, Raw: text, Number: num, Unit: "%"}, true
}

// LengthPercent accepts either length or percentage.
func LengthPercent() Parser {
	return ParserFunc(func(token string) (Value, bool) {
		if v, ok := parseLength(token); ok {
			return v, true
		}
		return parsePercent(token)
	})
}

// Keyword accepts one of the given words, case is ignored and the resulting
// keyword is always lower case.
func Keyword(words ...string) Parser {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return ParserFunc(func(token string) (Value, bool) {
		tt, text, ok := lexSingle(token)
		if !ok || tt != tcss.IdentToken {
			return Value{}, false
		}
		kw := strings.ToLower(text)
		if _, found := set[kw]; !found {
			return Value{}, false
		}
		return Value{Type: TypeKeyword, Raw: text, Keyword: kw}, true
	})
}

// String accepts any non-empty text, surrounding quotes are removed.
func String() Parser {
	return ParserFunc(func(token string) (Value, bool) {
		token = strings.TrimSpace(token)
		if token == "" {
			return Value{}, false
		}
		text := Unquote(token)
		if text == "" {
			return Value{}, false
		}
		return Value{Type: TypeString, Raw: token, Text: text}, true
	})
}

// Any accepts any non-empty token verbatim.
func Any() Parser {
	return ParserFunc(func(token string) (Value, bool) {
		token = strings.TrimSpace(token)
		if token == "" {
			return Value{}, false
		}
		return Value{Type: TypeRaw, Raw: token}, true
	})
}

// Function accepts function call syntax "name(...)". When names are given
// only those functions are accepted.
func Function(names ...string) Parser {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return ParserFunc(func(token string) (Value, bool) {
		name, ok := functionName(token)
		if !ok {
			return Value{}, false
		}
		if _, found := set[name]; len(set) > 0 && !found {
			return Value{}, false
		}
		return Value{Type: TypeFunction, Raw: strings.TrimSpace(token), Keyword: name}, true
	})
}

// functionName checks that the whole token is a single balanced function call.
func functionName(token string) (string, bool) {
	l := tcss.NewLexer(parse.NewInputString(strings.TrimSpace(token)))
	tt, data := l.Next()
	if tt == tcss.URLToken {
		next, _ := l.Next()
		return "url", next == tcss.ErrorToken
	}
	if tt != tcss.FunctionToken {
		return "", false
	}
	name := strings.ToLower(strings.TrimSuffix(string(data), "("))
	depth := 1
	for {
		tt, _ = l.Next()
		switch tt {
		case tcss.ErrorToken:
			return "", false
		case tcss.FunctionToken, tcss.LeftParenthesisToken:
			depth++
		case tcss.RightParenthesisToken:
			depth--
			if depth == 0 {
				next, _ := l.Next()
				return name, next == tcss.ErrorToken
			}
		}
	}
}

// ParserByName returns one of the standard parsers by the name used in
// specification definition files. Keywords are required for "keyword" and
// restrict names for "function".
func ParserByName(name string, keywords []string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "keyword":
		if len(keywords) == 0 {
			return nil, fmt.Errorf("keyword parser requires at least one keyword")
		}
		return Keyword(keywords...), nil
	case "number":
		return Number(), nil
	case "length":
		return Length(), nil
	case "percent":
		return Percent(), nil
	case "length_percent":
		return LengthPercent(), nil
	case "color":
		return Color(), nil
	case "string":
		return String(), nil
	case "function":
		return Function(keywords...), nil
	case "any":
		return Any(), nil
	}
	return nil, fmt.Errorf("unknown value parser '%s'", name)
}
