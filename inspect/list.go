package inspect

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"rcss/common"
	"rcss/spec"
	"rcss/state"
)

type (
	propertyDefDoc struct {
		ID           int    `yaml:"id" ion:"id"`
		Name         string `yaml:"name" ion:"name"`
		Default      string `yaml:"default" ion:"default"`
		Inherited    bool   `yaml:"inherited,omitempty" ion:"inherited,omitempty"`
		ForcesLayout bool   `yaml:"layout,omitempty" ion:"layout,omitempty"`
		CommaList    bool   `yaml:"list,omitempty" ion:"list,omitempty"`
	}

	shorthandDefDoc struct {
		ID    int      `yaml:"id" ion:"id"`
		Name  string   `yaml:"name" ion:"name"`
		Type  string   `yaml:"type" ion:"type"`
		Items []string `yaml:"items" ion:"items"`
	}

	listDoc struct {
		Properties []propertyDefDoc  `yaml:"properties" ion:"properties"`
		Shorthands []shorthandDefDoc `yaml:"shorthands" ion:"shorthands"`
	}
)

// listFilter selects definitions to list.
type listFilter struct {
	pattern   string // shell pattern over names, empty matches all
	inherited bool   // only inherited properties, no shorthands
	sorted    bool   // natural name order instead of id order
}

func (f listFilter) match(name string) bool {
	if len(f.pattern) == 0 {
		return true
	}
	ok, err := path.Match(f.pattern, name)
	return err == nil && ok
}

// List shows registered properties and shorthands.
func List(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("list")

	filter := listFilter{
		pattern:   strings.ToLower(cmd.Args().First()),
		inherited: cmd.Bool("inherited"),
		sorted:    env.Cfg.Output.Sort || cmd.Bool("sort"),
	}
	if _, err := path.Match(filter.pattern, ""); err != nil {
		return fmt.Errorf("bad name pattern '%s': %w", filter.pattern, err)
	}

	doc := listDefinitions(env.Spec, filter)
	log.Debug("Definitions selected", zap.Int("properties", len(doc.Properties)), zap.Int("shorthands", len(doc.Shorthands)))

	format := outputFormat(env, cmd, log)
	var (
		data []byte
		err  error
	)
	switch format {
	case common.OutputFmtYaml, common.OutputFmtIon:
		data, err = marshal(doc, format)
	case common.OutputFmtCss:
		data = []byte(listCSS(doc))
	default:
		data = []byte(listText(doc))
	}
	if err != nil {
		return err
	}
	return writeOutput(env, cmd.String("output"), "list"+format.Ext(), data, log)
}

func listDefinitions(s *spec.Specification, f listFilter) listDoc {
	doc := listDoc{Properties: []propertyDefDoc{}, Shorthands: []shorthandDefDoc{}}

	names := s.GetRegisteredProperties()
	if f.inherited {
		names = s.GetRegisteredInheritedProperties()
	}
	for _, name := range names {
		if !f.match(name) {
			continue
		}
		def := s.GetPropertyByName(name)
		doc.Properties = append(doc.Properties, propertyDefDoc{
			ID:           int(def.ID()),
			Name:         def.Name(),
			Default:      def.DefaultValue(),
			Inherited:    def.IsInherited(),
			ForcesLayout: def.ForcesLayout(),
			CommaList:    def.IsCommaList(),
		})
	}
	if !f.inherited {
		for _, sd := range s.Shorthands() {
			if !f.match(sd.Name) {
				continue
			}
			items := make([]string, 0, len(sd.Items))
			for _, it := range sd.Items {
				items = append(items, s.ItemName(it))
			}
			doc.Shorthands = append(doc.Shorthands, shorthandDefDoc{ID: int(sd.ID), Name: sd.Name, Type: sd.Type.String(), Items: items})
		}
	}

	if f.sorted {
		slices.SortStableFunc(doc.Properties, func(a, b propertyDefDoc) int { return naturalCmp(a.Name, b.Name) })
		slices.SortStableFunc(doc.Shorthands, func(a, b shorthandDefDoc) int { return naturalCmp(a.Name, b.Name) })
	} else {
		slices.SortStableFunc(doc.Properties, func(a, b propertyDefDoc) int { return a.ID - b.ID })
	}
	return doc
}

func listText(doc listDoc) string {
	var sb strings.Builder
	for _, p := range doc.Properties {
		var flags []string
		if p.Inherited {
			flags = append(flags, "inherited")
		}
		if p.ForcesLayout {
			flags = append(flags, "layout")
		}
		if p.CommaList {
			flags = append(flags, "list")
		}
		fmt.Fprintf(&sb, "%4d  %-24s %-16s %s\n", p.ID, p.Name, p.Default, strings.Join(flags, ","))
	}
	for _, sd := range doc.Shorthands {
		fmt.Fprintf(&sb, "%4d  %-24s %-16s %s\n", sd.ID, sd.Name, sd.Type, strings.Join(sd.Items, ", "))
	}
	return sb.String()
}

// listCSS renders defaults as a universal rule, shorthands are not shown.
func listCSS(doc listDoc) string {
	var sb strings.Builder
	sb.WriteString("* {\n")
	for _, p := range doc.Properties {
		fmt.Fprintf(&sb, "  %s: %s;\n", p.Name, p.Default)
	}
	sb.WriteString("}\n")
	return sb.String()
}
