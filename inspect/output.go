package inspect

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/amazon-ion/ion-go/ion"
	"github.com/maruel/natural"
	yaml "gopkg.in/yaml.v3"

	"rcss/common"
	"rcss/spec"
	"rcss/stylesheet"
	"rcss/utils/debug"
)

// Documents below are serialized view of parsing results shared by
// structured output formats.
type (
	propertyDoc struct {
		Name   string `yaml:"name" ion:"name"`
		Value  string `yaml:"value" ion:"value"`
		Type   string `yaml:"type" ion:"type"`
		Source string `yaml:"source,omitempty" ion:"source,omitempty"`
		Line   int    `yaml:"line,omitempty" ion:"line,omitempty"`
	}

	ruleDoc struct {
		Selectors  []string      `yaml:"selectors" ion:"selectors"`
		Media      string        `yaml:"media,omitempty" ion:"media,omitempty"`
		Line       int           `yaml:"line" ion:"line"`
		Inline     bool          `yaml:"inline,omitempty" ion:"inline,omitempty"`
		Properties []propertyDoc `yaml:"properties" ion:"properties"`
	}

	sheetDoc struct {
		Source   string    `yaml:"source" ion:"source"`
		Imports  []string  `yaml:"imports,omitempty" ion:"imports,omitempty"`
		Rules    []ruleDoc `yaml:"rules" ion:"rules"`
		Warnings []string  `yaml:"warnings,omitempty" ion:"warnings,omitempty"`
	}
)

func newPropertyDocs(s *spec.Specification, d *spec.Dictionary) []propertyDoc {
	docs := make([]propertyDoc, 0, d.Len())
	for _, id := range d.IDs() {
		p, _ := d.Get(id)
		docs = append(docs, propertyDoc{
			Name:   s.PropertyName(id),
			Value:  p.Value.String(),
			Type:   p.Value.Type.String(),
			Source: p.Source,
			Line:   p.Line,
		})
	}
	return docs
}

func newRuleDoc(s *spec.Specification, r *stylesheet.Rule, media string) ruleDoc {
	return ruleDoc{
		Selectors:  r.Selectors,
		Media:      media,
		Line:       r.Line,
		Inline:     r.Inline,
		Properties: newPropertyDocs(s, r.Properties),
	}
}

func newSheetDoc(sheet *stylesheet.Stylesheet) sheetDoc {
	doc := sheetDoc{Source: sheet.Source, Imports: sheet.Imports(), Warnings: sheet.Warnings, Rules: []ruleDoc{}}
	for _, item := range sheet.Items {
		switch {
		case item.Rule != nil:
			doc.Rules = append(doc.Rules, newRuleDoc(sheet.Spec(), item.Rule, ""))
		case item.Media != nil:
			for i := range item.Media.Rules {
				doc.Rules = append(doc.Rules, newRuleDoc(sheet.Spec(), &item.Media.Rules[i], item.Media.Query))
			}
		}
	}
	return doc
}

// formatSheets renders parsed stylesheets in requested format.
func formatSheets(sheets []*stylesheet.Stylesheet, format common.OutputFmt) ([]byte, error) {
	switch format {
	case common.OutputFmtCss:
		buf := new(bytes.Buffer)
		for i, sheet := range sheets {
			if i > 0 {
				buf.WriteString("\n")
			}
			fmt.Fprintf(buf, "/* %s */\n", sheet.Source)
			if _, err := sheet.WriteTo(buf); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil
	case common.OutputFmtYaml, common.OutputFmtIon:
		docs := make([]sheetDoc, 0, len(sheets))
		for _, sheet := range sheets {
			docs = append(docs, newSheetDoc(sheet))
		}
		return marshal(docs, format)
	}

	tw := debug.NewTreeWriter()
	for _, sheet := range sheets {
		tw.Line(0, "Stylesheet: %s", sheet.Source)
		for _, url := range sheet.Imports() {
			tw.Line(1, "@import %s", url)
		}
		for _, rule := range newSheetDoc(sheet).Rules {
			if rule.Media != "" {
				tw.Line(1, "%s @media %s (line %d)", strings.Join(rule.Selectors, ", "), rule.Media, rule.Line)
			} else {
				tw.Line(1, "%s (line %d)", strings.Join(rule.Selectors, ", "), rule.Line)
			}
			for _, p := range rule.Properties {
				tw.Line(2, "%s: %s (%s)", p.Name, p.Value, p.Type)
			}
		}
		for _, w := range sheet.Warnings {
			tw.Line(1, "warning: %s", w)
		}
	}
	return tw.Bytes(), nil
}

func marshal(v any, format common.OutputFmt) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case common.OutputFmtIon:
		data, err = ion.MarshalText(v)
	default:
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to marshal %s output: %w", format, err)
	}
	return data, nil
}

// applyDefaults fills every rule with default values of the properties it
// does not declare.
func applyDefaults(s *spec.Specification, sheet *stylesheet.Stylesheet) {
	fill := func(r *stylesheet.Rule) {
		d := spec.NewDictionary()
		s.SetPropertyDefaults(d)
		d.Merge(r.Properties)
		r.Properties = d
	}
	for _, item := range sheet.Items {
		switch {
		case item.Rule != nil:
			fill(item.Rule)
		case item.Media != nil:
			for i := range item.Media.Rules {
				fill(&item.Media.Rules[i])
			}
		}
	}
}

// sortSheets orders stylesheets by source and their content by selectors
// using natural ordering ("h2" goes before "h10"). Imports stay in front and
// @media blocks follow plain rules.
func sortSheets(sheets []*stylesheet.Stylesheet) {
	slices.SortStableFunc(sheets, func(a, b *stylesheet.Stylesheet) int {
		return naturalCmp(a.Source, b.Source)
	})
	for _, sheet := range sheets {
		slices.SortStableFunc(sheet.Items, func(a, b stylesheet.Item) int {
			if c := cmp.Compare(itemRank(a), itemRank(b)); c != 0 {
				return c
			}
			switch {
			case a.Rule != nil:
				return naturalCmp(firstSelector(a.Rule), firstSelector(b.Rule))
			case a.Media != nil:
				return naturalCmp(a.Media.Query, b.Media.Query)
			}
			return 0
		})
		for _, item := range sheet.Items {
			if item.Media == nil {
				continue
			}
			slices.SortStableFunc(item.Media.Rules, func(a, b stylesheet.Rule) int {
				return naturalCmp(firstSelector(&a), firstSelector(&b))
			})
		}
	}
}

func itemRank(it stylesheet.Item) int {
	switch {
	case it.Import != nil:
		return 0
	case it.Rule != nil:
		return 1
	}
	return 2
}

func firstSelector(r *stylesheet.Rule) string {
	if len(r.Selectors) == 0 {
		return ""
	}
	return r.Selectors[0]
}

func naturalCmp(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}
