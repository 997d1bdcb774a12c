package stylesheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// ParseXML extracts styles of an XML document: XHTML and SVG <style>
// elements, FB2 <stylesheet type="text/css"> elements and style attributes of
// any element. XML tree does not keep positions, so every embedded stylesheet
// is reported with element path appended to source and lines counted from its
// own text.
func (p *Parser) ParseXML(r io.Reader, source string) (*Stylesheet, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		ValidateInput: false,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}

	sheet := &Stylesheet{Source: source, spec: p.spec}
	var styles, inline int

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		where := source + "#" + el.GetPath()
		tag := strings.ToLower(el.Tag)

		if isStyleElement(el, tag) {
			if text := el.Text(); len(strings.TrimSpace(text)) > 0 {
				p.parseInto(sheet, []byte(text), where, 1)
				styles++
			}
			return
		}

		if attr := el.SelectAttr("style"); attr != nil && len(strings.TrimSpace(attr.Value)) > 0 {
			dict, warnings := p.ParseInline(attr.Value, where, 1)
			sheet.Warnings = append(sheet.Warnings, warnings...)
			if dict.Len() > 0 {
				sheet.Items = append(sheet.Items, Item{Rule: &Rule{
					Selectors:  []string{tag + "[style]"},
					Properties: dict,
					Line:       1,
					Inline:     true,
				}})
				inline++
			}
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)

	p.log.Debug("XML parsed", zap.String("source", source), zap.String("root", root.Tag), zap.Int("styles", styles), zap.Int("inline", inline))
	return sheet, nil
}

func isStyleElement(el *etree.Element, tag string) bool {
	switch tag {
	case "style":
		return true
	case "stylesheet":
		typ := el.SelectAttrValue("type", "text/css")
		return strings.EqualFold(typ, "text/css")
	}
	return false
}
