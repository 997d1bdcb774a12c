// Package debug produces human readable dumps of specifications, dictionaries
// and parsed stylesheets.
package debug

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// TreeWriter accumulates indented text, one node per line.
type TreeWriter struct {
	buf    *bytes.Buffer
	indent string
}

// Option configures TreeWriter.
type Option func(*TreeWriter)

// WithIndent sets string written once for every level of depth.
func WithIndent(indent string) Option {
	return func(tw *TreeWriter) {
		tw.indent = indent
	}
}

// NewTreeWriter returns empty writer indenting with two spaces unless
// configured otherwise.
func NewTreeWriter(opts ...Option) *TreeWriter {
	tw := &TreeWriter{buf: &bytes.Buffer{}, indent: "  "}
	for _, opt := range opts {
		opt(tw)
	}
	return tw
}

func (tw *TreeWriter) String() string {
	return tw.buf.String()
}

// Bytes returns accumulated text. It is valid until next write.
func (tw *TreeWriter) Bytes() []byte {
	return tw.buf.Bytes()
}

func (tw *TreeWriter) Len() int {
	return tw.buf.Len()
}

// WriteTo implements io.WriterTo, accumulated text is consumed.
func (tw *TreeWriter) WriteTo(w io.Writer) (int64, error) {
	return tw.buf.WriteTo(w)
}

// Line writes formatted node at depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.buf, format, args...)
	tw.buf.WriteByte('\n')
}

// TextBlock writes "label: value" node at depth. Value is quoted when it
// would be ambiguous otherwise: empty, with surrounding spaces, quotes or
// unprintable characters.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.buf.WriteString(label)
	tw.buf.WriteString(": ")
	tw.buf.WriteString(encodeText(value))
	tw.buf.WriteByte('\n')
}

func (tw *TreeWriter) pad(depth int) {
	for range depth {
		tw.buf.WriteString(tw.indent)
	}
}

func encodeText(raw string) string {
	if needsQuoting(raw) {
		return strconv.Quote(raw)
	}
	return raw
}

func needsQuoting(s string) bool {
	if len(s) == 0 || strings.TrimSpace(s) != s {
		return true
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return r == '"' || r == '\\' || !unicode.IsPrint(r)
	}) >= 0
}
