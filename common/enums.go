// The only reason this package exists is because both configuration and
// specification definitions need the same enums and I do not want config to
// depend on the specification core.
package common

import (
	"fmt"
	"strings"
)

// ShorthandType selects how a shorthand declaration is expanded into its items.
type ShorthandType int

const (
	// Items that fail to parse a value let it fall through to the next item,
	// items left without a value are not set.
	ShorthandTypeFallThrough ShorthandType = iota
	// A single failed item aborts, items without a value replicate the last
	// declared one.
	ShorthandTypeReplicate
	// For 'padding', 'margin', etc: 1, 2 or 4 values over four items.
	ShorthandTypeBox
	// Every item receives the full value string, whether it is a property or
	// another shorthand.
	ShorthandTypeRecursive
)

var shorthandTypeNames = []string{"fall-through", "replicate", "box", "recursive"}

// ShorthandTypeNames returns list of possible string values of ShorthandType.
func ShorthandTypeNames() []string {
	return append([]string(nil), shorthandTypeNames...)
}

func (t ShorthandType) String() string {
	if t >= 0 && int(t) < len(shorthandTypeNames) {
		return shorthandTypeNames[t]
	}
	return fmt.Sprintf("ShorthandType(%d)", int(t))
}

// IsValid checks if value is one of the defined constants.
func (t ShorthandType) IsValid() bool {
	return t >= 0 && int(t) < len(shorthandTypeNames)
}

// ParseShorthandType converts name to ShorthandType. Underscores and case are
// ignored so "fall_through", "FallThrough" and "fall-through" are the same.
func ParseShorthandType(name string) (ShorthandType, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for i, n := range shorthandTypeNames {
		if norm == n || norm == strings.ReplaceAll(n, "-", "") {
			return ShorthandType(i), nil
		}
	}
	return 0, fmt.Errorf("%s is not a valid ShorthandType, try [%s]", name, strings.Join(shorthandTypeNames, ", "))
}

func (t ShorthandType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ShorthandType) UnmarshalText(text []byte) error {
	v, err := ParseShorthandType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Specification of requested output format.
type OutputFmt int

const (
	OutputFmtText OutputFmt = iota
	OutputFmtYaml
	OutputFmtCss
	OutputFmtIon
)

var outputFmtNames = []string{"text", "yaml", "css", "ion"}

// OutputFmtNames returns list of possible string values of OutputFmt.
func OutputFmtNames() []string {
	return append([]string(nil), outputFmtNames...)
}

func (o OutputFmt) String() string {
	if o >= 0 && int(o) < len(outputFmtNames) {
		return outputFmtNames[o]
	}
	return fmt.Sprintf("OutputFmt(%d)", int(o))
}

// Ext returns file name extension for the format.
func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtYaml:
		return ".yaml"
	case OutputFmtCss:
		return ".css"
	case OutputFmtIon:
		return ".ion"
	}
	return ".txt"
}

func (o OutputFmt) IsValid() bool {
	return o >= 0 && int(o) < len(outputFmtNames)
}

func ParseOutputFmt(name string) (OutputFmt, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	for i, n := range outputFmtNames {
		if norm == n {
			return OutputFmt(i), nil
		}
	}
	return 0, fmt.Errorf("%s is not a valid OutputFmt, try [%s]", name, strings.Join(outputFmtNames, ", "))
}

func (o OutputFmt) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *OutputFmt) UnmarshalText(text []byte) error {
	v, err := ParseOutputFmt(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
