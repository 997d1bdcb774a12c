package spec

import (
	"rcss/common"
)

// ShorthandDefinition describes a registered shorthand and its ordered items.
type ShorthandDefinition struct {
	ID    ShorthandID
	Name  string
	Type  common.ShorthandType
	Items []ShorthandItem
}
