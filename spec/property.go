package spec

import (
	"fmt"

	"rcss/css"
)

// ValueParser turns a single declaration value into a typed value. It is the
// only thing specification knows about property grammars.
type ValueParser = css.Parser

// ParserFunc is an adapter to allow the use of ordinary functions as value
// parsers.
type ParserFunc = css.ParserFunc

// PropertyDefinition describes a single registered property.
type PropertyDefinition struct {
	id           PropertyID
	name         string
	defaultValue string
	inherited    bool
	forcesLayout bool
	commaList    bool
	parsers      []ValueParser
}

func (d *PropertyDefinition) ID() PropertyID       { return d.id }
func (d *PropertyDefinition) Name() string         { return d.name }
func (d *PropertyDefinition) DefaultValue() string { return d.defaultValue }
func (d *PropertyDefinition) IsInherited() bool    { return d.inherited }
func (d *PropertyDefinition) ForcesLayout() bool   { return d.forcesLayout }
func (d *PropertyDefinition) IsCommaList() bool    { return d.commaList }

// SetCommaList marks property grammar as comma separated list of values, each
// parsed separately (font-family, transition-property, etc.).
func (d *PropertyDefinition) SetCommaList() *PropertyDefinition {
	d.commaList = true
	return d
}

// AddParser attaches value parser to the definition. Parsers are tried in the
// order they were added, first success wins.
func (d *PropertyDefinition) AddParser(p ValueParser) *PropertyDefinition {
	if p != nil {
		d.parsers = append(d.parsers, p)
	}
	return d
}

// ParseValue parses a single value with attached parsers.
func (d *PropertyDefinition) ParseValue(value string) (css.Value, bool) {
	for _, p := range d.parsers {
		if v, ok := p.ParseValue(value); ok {
			return v, true
		}
	}
	return css.Value{}, false
}

// ParseDeclared parses complete declared value, splitting comma lists when
// property grammar requires it.
func (d *PropertyDefinition) ParseDeclared(value string) (css.Value, error) {
	mode := SplitNone
	if d.commaList {
		mode = SplitComma
	}
	tokens, err := Tokenize(value, mode)
	if err != nil {
		return css.Value{}, err
	}
	if !d.commaList {
		if len(tokens) != 1 {
			return css.Value{}, fmt.Errorf("%w: %d values where one is expected", ErrInvalidValue, len(tokens))
		}
		v, ok := d.ParseValue(tokens[0])
		if !ok {
			return css.Value{}, ErrInvalidValue
		}
		return v, nil
	}
	list := make([]css.Value, 0, len(tokens))
	for _, t := range tokens {
		v, ok := d.ParseValue(t)
		if !ok {
			return css.Value{}, ErrInvalidValue
		}
		list = append(list, v)
	}
	return css.Value{Type: css.TypeList, Raw: value, List: list}, nil
}

// parseToken parses a single token produced by shorthand expansion. Token of
// a comma list property may hold the whole list.
func (d *PropertyDefinition) parseToken(token string) (css.Value, bool) {
	if !d.commaList {
		return d.ParseValue(token)
	}
	v, err := d.ParseDeclared(token)
	return v, err == nil
}

// Default parses default value of the property.
func (d *PropertyDefinition) Default() (css.Value, bool) {
	v, err := d.ParseDeclared(d.defaultValue)
	return v, err == nil
}
