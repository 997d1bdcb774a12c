package stylesheet

import (
	"bytes"
	"fmt"
	"regexp"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
	charsetPattern = regexp.MustCompile(`^@charset\s+["']([^"']+)["']\s*;`)
)

// Decode converts stylesheet to UTF-8. Explicit label wins, otherwise byte
// order mark and then leading @charset rule are honoured. Data without any
// encoding information is returned as is.
func Decode(data []byte, label string) ([]byte, error) {
	if label == "" {
		label = Detect(data)
	}
	if label == "" {
		return data, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset '%s': %w", label, err)
	}
	var dec transform.Transformer = enc.NewDecoder()
	switch name, _ := htmlindex.Name(enc); name {
	case "utf-8":
		return bytes.TrimPrefix(data, utf8BOM), nil
	case "utf-16le", "utf-16be":
		// BOM, when present, overrides endianness implied by label
		dec = unicode.BOMOverride(dec)
	}
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode stylesheet from '%s': %w", label, err)
	}
	return out, nil
}

// Detect returns character set label declared by data itself (byte order mark
// or leading @charset rule), or empty string.
func Detect(data []byte) string {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		return "utf-8"
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}), bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return "utf-16"
	}
	if m := charsetPattern.FindSubmatch(data); m != nil {
		return string(m[1])
	}
	return ""
}

// DecodeFallback converts stylesheet to UTF-8 honouring encoding declared by
// data, fallback is used only when there is none. Nil fallback means UTF-8.
func DecodeFallback(data []byte, fallback encoding.Encoding) ([]byte, error) {
	if label := Detect(data); label != "" || fallback == nil {
		return Decode(data, label)
	}
	out, _, err := transform.Bytes(fallback.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode stylesheet: %w", err)
	}
	return out, nil
}
