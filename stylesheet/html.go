package stylesheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseHTML extracts styles of an HTML document. Content of every <style>
// element is parsed as a stylesheet, every style attribute becomes an inline
// rule with "tag[style]" selector.
func (p *Parser) ParseHTML(r io.Reader, source string) (*Stylesheet, error) {
	sheet := &Stylesheet{Source: source, spec: p.spec}

	var (
		z       = html.NewTokenizer(r)
		line    = 1
		inStyle bool
		styles  int
		inline  int
	)
	for {
		tt := z.Next()
		raw := z.Raw()
		startLine := line
		line += bytes.Count(raw, []byte{'\n'})

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to read html: %w", err)
			}
			p.log.Debug("HTML parsed", zap.String("source", source), zap.Int("styles", styles), zap.Int("inline", inline))
			return sheet, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			a := atom.Lookup(name)
			inStyle = a == atom.Style && tt == html.StartTagToken
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if atom.Lookup(key) != atom.Style || a == atom.Style {
					continue
				}
				// attribute values may span lines, offset is not tracked inside tag
				dict, warnings := p.ParseInline(string(val), source, startLine)
				sheet.Warnings = append(sheet.Warnings, warnings...)
				if dict.Len() == 0 {
					continue
				}
				sheet.Items = append(sheet.Items, Item{Rule: &Rule{
					Selectors:  []string{strings.ToLower(string(name)) + "[style]"},
					Properties: dict,
					Line:       startLine,
					Inline:     true,
				}})
				inline++
			}

		case html.TextToken:
			if inStyle {
				p.parseInto(sheet, raw, source, startLine)
				styles++
			}

		case html.EndTagToken:
			inStyle = false
		}
	}
}
