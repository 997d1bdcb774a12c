package spec_test

import (
	"testing"

	"rcss/common"
	"rcss/css"
	"rcss/spec"
)

// newTestSpec builds a small specification covering every shorthand type.
func newTestSpec(t *testing.T) *spec.Specification {
	t.Helper()

	s := spec.NewSpecification(nil, 1, 1)

	s.RegisterProperty("color", "black", true, false).AddParser(css.Color())
	for _, side := range []string{"top", "right", "bottom", "left"} {
		s.RegisterProperty("margin-"+side, "0px", false, true).AddParser(css.LengthPercent()).AddParser(css.Keyword("auto"))
		s.RegisterProperty("border-"+side+"-color", "black", false, false).AddParser(css.Color())
		s.RegisterProperty("border-"+side+"-width", "medium", false, true).AddParser(css.Length()).AddParser(css.Keyword("thin", "medium", "thick"))
	}
	s.RegisterProperty("font-style", "normal", true, true).AddParser(css.Keyword("normal", "italic", "oblique"))
	s.RegisterProperty("font-weight", "normal", true, true).AddParser(css.Keyword("normal", "bold")).AddParser(css.Number())
	s.RegisterProperty("font-size", "12px", true, true).AddParser(css.LengthPercent())
	s.RegisterProperty("font-family", "serif", true, true).AddParser(css.String()).SetCommaList()

	shorthands := []struct {
		name, items string
		typ         common.ShorthandType
	}{
		{"margin", "margin-top, margin-right, margin-bottom, margin-left", common.ShorthandTypeBox},
		{"border-color", "border-top-color, border-right-color, border-bottom-color, border-left-color", common.ShorthandTypeReplicate},
		{"border-width", "border-top-width, border-right-width, border-bottom-width, border-left-width", common.ShorthandTypeBox},
		{"border-top", "border-top-width, border-top-color", common.ShorthandTypeFallThrough},
		{"border-right", "border-right-width, border-right-color", common.ShorthandTypeFallThrough},
		{"border-bottom", "border-bottom-width, border-bottom-color", common.ShorthandTypeFallThrough},
		{"border-left", "border-left-width, border-left-color", common.ShorthandTypeFallThrough},
		{"border", "border-top, border-right, border-bottom, border-left", common.ShorthandTypeRecursive},
		{"font", "font-style, font-weight, font-size, font-family", common.ShorthandTypeFallThrough},
	}
	for _, sh := range shorthands {
		if err := s.RegisterShorthand(sh.name, sh.items, sh.typ); err != nil {
			t.Fatalf("RegisterShorthand(%q) error = %v", sh.name, err)
		}
	}
	s.Seal()
	return s
}

// valueOf returns canonical text of the property in dict or "" when absent.
func valueOf(t *testing.T, s *spec.Specification, d *spec.Dictionary, name string) string {
	t.Helper()
	id := s.PropertyID(name)
	if id == spec.InvalidProperty {
		t.Fatalf("property %q is not registered", name)
	}
	p, ok := d.Get(id)
	if !ok {
		return ""
	}
	return p.Value.String()
}

func mustPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	f()
}

func mustParse(t *testing.T, s *spec.Specification, name, value string) css.Value {
	t.Helper()
	v, err := s.GetPropertyByName(name).ParseDeclared(value)
	if err != nil {
		t.Fatalf("%s: %q error = %v", name, value, err)
	}
	return v
}
