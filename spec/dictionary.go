package spec

import (
	"maps"
	"slices"

	"rcss/css"
)

// Property is a parsed property value with its origin.
type Property struct {
	Value  css.Value
	Source string // file name or other source description
	Line   int
}

// Dictionary holds parsed values of a single declaration block. It is owned by
// the caller and must not be shared between concurrently parsing goroutines.
type Dictionary struct {
	props map[PropertyID]Property
}

func NewDictionary() *Dictionary {
	return &Dictionary{props: make(map[PropertyID]Property)}
}

// Set stores property value, replacing the previous one.
func (d *Dictionary) Set(id PropertyID, p Property) {
	if d.props == nil {
		d.props = make(map[PropertyID]Property)
	}
	d.props[id] = p
}

// Get returns property value if present.
func (d *Dictionary) Get(id PropertyID) (Property, bool) {
	p, ok := d.props[id]
	return p, ok
}

// Has checks if the property is present.
func (d *Dictionary) Has(id PropertyID) bool {
	_, ok := d.props[id]
	return ok
}

func (d *Dictionary) Remove(id PropertyID) {
	delete(d.props, id)
}

func (d *Dictionary) Len() int {
	return len(d.props)
}

// IDs returns ids of all present properties in ascending order.
func (d *Dictionary) IDs() []PropertyID {
	return slices.Sorted(maps.Keys(d.props))
}

// Merge copies all properties from other, values from other win.
func (d *Dictionary) Merge(other *Dictionary) {
	if other == nil {
		return
	}
	for id, p := range other.props {
		d.Set(id, p)
	}
}

func (d *Dictionary) Clone() *Dictionary {
	return &Dictionary{props: maps.Clone(d.props)}
}
