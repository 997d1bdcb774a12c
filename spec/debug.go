package spec

import (
	"strings"

	"rcss/utils/debug"
)

// Dump returns human readable tree of all registered definitions.
func (s *Specification) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Specification: %d properties, %d shorthands", len(s.propertyNames), len(s.Shorthands()))
	for _, def := range s.properties {
		if def == nil {
			continue
		}
		var flags []string
		if def.inherited {
			flags = append(flags, "inherited")
		}
		if def.forcesLayout {
			flags = append(flags, "layout")
		}
		if def.commaList {
			flags = append(flags, "list")
		}
		tw.Line(1, "property %d %s [%s]", def.id, def.name, strings.Join(flags, ","))
		tw.TextBlock(2, "default", def.defaultValue)
	}
	for _, sd := range s.Shorthands() {
		tw.Line(1, "shorthand %d %s (%s)", sd.ID, sd.Name, sd.Type)
		for _, it := range sd.Items {
			tw.Line(2, "%s %s", it.Kind, s.ItemName(it))
		}
	}
	return tw.String()
}

// Dump returns human readable tree of dictionary content in id order.
func (d *Dictionary) Dump(s *Specification) string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Dictionary: %d properties", d.Len())
	for _, id := range d.IDs() {
		p := d.props[id]
		tw.Line(1, "%s: %s (%s)", s.PropertyName(id), p.Value, p.Value.Type)
		if p.Source != "" {
			tw.Line(2, "at %s:%d", p.Source, p.Line)
		}
	}
	return tw.String()
}
