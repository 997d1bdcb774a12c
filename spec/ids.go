package spec

import "strconv"

// ID is the constraint for identifier types managed by IDNameMap. Zero value
// is always reserved as invalid.
type ID interface {
	~uint8 | ~uint16 | ~uint32
}

// PropertyID identifies a registered simple property.
type PropertyID uint16

// ShorthandID identifies a registered shorthand.
type ShorthandID uint16

const (
	InvalidProperty  PropertyID  = 0
	InvalidShorthand ShorthandID = 0
)

// InvalidName is the name of slot 0 in every identifier space.
const InvalidName = "invalid"

func (id PropertyID) String() string {
	return "property#" + strconv.Itoa(int(id))
}

func (id ShorthandID) String() string {
	return "shorthand#" + strconv.Itoa(int(id))
}

// ItemKind tells which identifier space a ShorthandItem refers to.
type ItemKind uint8

const (
	ItemInvalid ItemKind = iota
	ItemProperty
	ItemShorthand
)

func (k ItemKind) String() string {
	switch k {
	case ItemProperty:
		return "property"
	case ItemShorthand:
		return "shorthand"
	default:
		return "invalid"
	}
}

// ShorthandItem is a member of a shorthand, either a simple property or
// another shorthand. Only the id matching Kind is meaningful.
type ShorthandItem struct {
	Kind      ItemKind
	Property  PropertyID
	Shorthand ShorthandID
}

// PropertyItem makes an item referring to a simple property.
func PropertyItem(id PropertyID) ShorthandItem {
	return ShorthandItem{Kind: ItemProperty, Property: id}
}

// ShorthandRef makes an item referring to another shorthand.
func ShorthandRef(id ShorthandID) ShorthandItem {
	return ShorthandItem{Kind: ItemShorthand, Shorthand: id}
}

func (it ShorthandItem) String() string {
	switch it.Kind {
	case ItemProperty:
		return it.Property.String()
	case ItemShorthand:
		return it.Shorthand.String()
	default:
		return "invalid item"
	}
}
