package stylesheet

import (
	"fmt"
	"io"
	"strings"

	"rcss/css"
	"rcss/spec"
)

// Rule is a single ruleset: selectors with parsed declaration block.
type Rule struct {
	Selectors  []string
	Properties *spec.Dictionary
	Line       int  // line of the first selector in source
	Inline     bool // block came from HTML style attribute
}

// MediaBlock is a @media block with its query and nested rules.
type MediaBlock struct {
	Query string
	Rules []Rule
	Line  int
}

// Item is a single top-level item of a stylesheet. Exactly one of Rule,
// Media or Import is set.
type Item struct {
	Rule   *Rule
	Media  *MediaBlock
	Import *string
}

// Stylesheet is a parsed stylesheet. Declarations rejected by specification
// are reported in Warnings and are not present in rules.
type Stylesheet struct {
	Source   string
	Items    []Item
	Warnings []string

	spec *spec.Specification
}

// Spec returns specification the stylesheet was parsed with.
func (s *Stylesheet) Spec() *spec.Specification {
	return s.spec
}

// Imports returns all @import URLs in source order.
func (s *Stylesheet) Imports() []string {
	var urls []string
	for _, item := range s.Items {
		if item.Import != nil {
			urls = append(urls, *item.Import)
		}
	}
	return urls
}

// Rules returns all rules in source order, rules of @media blocks included.
func (s *Stylesheet) Rules() []Rule {
	var rules []Rule
	for _, item := range s.Items {
		switch {
		case item.Rule != nil:
			rules = append(rules, *item.Rule)
		case item.Media != nil:
			rules = append(rules, item.Media.Rules...)
		}
	}
	return rules
}

// RulesBySelector returns all top-level rules having the given selector.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, item := range s.Items {
		if item.Rule == nil {
			continue
		}
		for _, sel := range item.Rule.Selectors {
			if sel == selector {
				matches = append(matches, *item.Rule)
				break
			}
		}
	}
	return matches
}

func (s *Stylesheet) warn(source string, line int, format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf("%s:%d: %s", source, line, fmt.Sprintf(format, args...)))
}

// WriteTo writes resolved stylesheet to w in source order, implementing
// io.WriterTo. Properties of a rule are written in id order.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for i, item := range s.Items {
		if i > 0 {
			cw.printf("\n")
		}
		switch {
		case item.Import != nil:
			cw.printf("@import url(\"%s\");\n", css.EscapeDoubleQuoted(*item.Import))
		case item.Media != nil:
			cw.printf("@media %s {\n", item.Media.Query)
			for j := range item.Media.Rules {
				if j > 0 {
					cw.printf("\n")
				}
				s.writeRule(cw, &item.Media.Rules[j], "  ")
			}
			cw.printf("}\n")
		case item.Rule != nil:
			s.writeRule(cw, item.Rule, "")
		}
		if cw.err != nil {
			break
		}
	}
	return cw.n, cw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func (s *Stylesheet) writeRule(cw *countingWriter, rule *Rule, indent string) {
	cw.printf("%s%s {\n", indent, strings.Join(rule.Selectors, ", "))
	for _, id := range rule.Properties.IDs() {
		p, _ := rule.Properties.Get(id)
		cw.printf("%s  %s: %s;\n", indent, s.spec.PropertyName(id), p.Value)
	}
	cw.printf("%s}\n", indent)
}

// countingWriter keeps the first write error, later writes are no-op.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}
