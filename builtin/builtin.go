// Package builtin provides the standard property specification and loader for
// definition files extending it.
package builtin

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rcss/common"
	"rcss/css"
	"rcss/spec"
)

//go:embed definitions.yaml
var definitions []byte

// Definitions returns embedded standard definitions document.
func Definitions() []byte {
	return definitions
}

// Document is the structure of a definitions file.
type Document struct {
	Properties []PropertyEntry  `yaml:"properties"`
	Shorthands []ShorthandEntry `yaml:"shorthands"`
}

type PropertyEntry struct {
	Name      string        `yaml:"name"`
	Default   string        `yaml:"default"`
	Inherited bool          `yaml:"inherited"`
	Layout    bool          `yaml:"layout"`
	List      bool          `yaml:"list"`
	Parsers   []ParserEntry `yaml:"parsers"`
}

type ParserEntry struct {
	Type     string   `yaml:"type"`
	Keywords []string `yaml:"keywords"`
}

type ShorthandEntry struct {
	Name  string               `yaml:"name"`
	Type  common.ShorthandType `yaml:"type"`
	Items string               `yaml:"items"`
}

// Decode parses definitions document, unknown fields are errors.
func Decode(data []byte) (*Document, error) {
	var doc Document

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode definitions: %w", err)
	}
	return &doc, nil
}

// Options controls how specification is built.
type Options struct {
	// Extra definition files loaded after the standard set.
	Definitions []string
	// Additional properties whose values are comma separated lists.
	CommaLists []string
	// Minimum id space reserved for explicitly numbered entries.
	ReserveProperties int
	ReserveShorthands int
}

// New builds and seals specification with standard definitions and any
// number of extension files.
func New(log *zap.Logger, extra ...string) (*spec.Specification, error) {
	return Build(log, Options{Definitions: extra})
}

// Build builds and seals specification according to options.
func Build(log *zap.Logger, opts Options) (*spec.Specification, error) {
	if log == nil {
		log = zap.NewNop()
	}

	std, err := Decode(definitions)
	if err != nil {
		return nil, err
	}

	s := spec.NewSpecification(log,
		max(opts.ReserveProperties, len(std.Properties)+1),
		max(opts.ReserveShorthands, len(std.Shorthands)+1))

	if err := register(s, std, true); err != nil {
		return nil, fmt.Errorf("standard definitions: %w", err)
	}
	s.AssertAllInserted(len(std.Properties)+1, len(std.Shorthands)+1)

	for _, fname := range opts.Definitions {
		data, err := os.ReadFile(fname)
		if err != nil {
			return nil, fmt.Errorf("unable to read definitions: %w", err)
		}
		if err := Load(s, data, false); err != nil {
			return nil, fmt.Errorf("definitions from '%s': %w", fname, err)
		}
		log.Debug("Definitions loaded", zap.String("file", fname))
	}

	for _, name := range opts.CommaLists {
		def := s.GetPropertyByName(name)
		if def == nil {
			return nil, fmt.Errorf("comma list: %w '%s'", spec.ErrUnknownProperty, name)
		}
		def.SetCommaList()
	}

	s.Seal()
	return s, nil
}

// Load decodes definitions document and registers its content. When reserved
// is set entries get explicit ids following document order, which requires
// enough reserved capacity and is meant for the standard set only.
func Load(s *spec.Specification, data []byte, reserved bool) error {
	doc, err := Decode(data)
	if err != nil {
		return err
	}
	return register(s, doc, reserved)
}

func register(s *spec.Specification, doc *Document, reserved bool) (err error) {
	for i, p := range doc.Properties {
		if strings.TrimSpace(p.Name) == "" {
			err = multierr.Append(err, fmt.Errorf("property #%d has no name", i+1))
			continue
		}
		if s.GetPropertyByName(p.Name) != nil || s.GetShorthandByName(p.Name) != nil {
			err = multierr.Append(err, fmt.Errorf("property '%s' is already defined", p.Name))
			continue
		}
		parsers, perr := makeParsers(p)
		if perr != nil {
			err = multierr.Append(err, perr)
			continue
		}
		var def *spec.PropertyDefinition
		if reserved {
			def = s.RegisterProperty(p.Name, p.Default, p.Inherited, p.Layout, spec.PropertyID(i+1))
		} else {
			def = s.RegisterProperty(p.Name, p.Default, p.Inherited, p.Layout)
		}
		for _, vp := range parsers {
			def.AddParser(vp)
		}
		if p.List {
			def.SetCommaList()
		}
		if _, ok := def.Default(); !ok {
			err = multierr.Append(err, fmt.Errorf("property '%s': default value '%s' does not parse", p.Name, p.Default))
		}
	}
	if err != nil {
		// shorthands would report missing items for every bad property
		return err
	}

	for i, sh := range doc.Shorthands {
		if strings.TrimSpace(sh.Name) == "" {
			err = multierr.Append(err, fmt.Errorf("shorthand #%d has no name", i+1))
			continue
		}
		if s.GetShorthandByName(sh.Name) != nil || s.GetPropertyByName(sh.Name) != nil {
			err = multierr.Append(err, fmt.Errorf("shorthand '%s' is already defined", sh.Name))
			continue
		}
		var serr error
		if reserved {
			serr = s.RegisterShorthand(sh.Name, sh.Items, sh.Type, spec.ShorthandID(i+1))
		} else {
			serr = s.RegisterShorthand(sh.Name, sh.Items, sh.Type)
		}
		err = multierr.Append(err, serr)
	}
	return err
}

func makeParsers(p PropertyEntry) ([]spec.ValueParser, error) {
	if len(p.Parsers) == 0 {
		return nil, fmt.Errorf("property '%s': %w", p.Name, errNoParsers)
	}
	out := make([]spec.ValueParser, 0, len(p.Parsers))
	for _, pe := range p.Parsers {
		vp, err := css.ParserByName(pe.Type, pe.Keywords)
		if err != nil {
			return nil, fmt.Errorf("property '%s': %w", p.Name, err)
		}
		out = append(out, vp)
	}
	return out, nil
}

var errNoParsers = errors.New("no value parsers")
