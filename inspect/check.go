package inspect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"rcss/common"
	"rcss/spec"
	"rcss/state"
)

// commandLineSource is recorded as origin of declarations given as arguments.
const commandLineSource = "command line"

type checkDoc struct {
	Declaration string        `yaml:"declaration" ion:"declaration"`
	Accepted    bool          `yaml:"accepted" ion:"accepted"`
	Error       string        `yaml:"error,omitempty" ion:"error,omitempty"`
	Properties  []propertyDoc `yaml:"properties" ion:"properties"`
}

// Check parses a single declaration NAME VALUE... and shows properties it
// resolves to.
func Check(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("check")

	if cmd.NArg() < 2 {
		return errors.New("property name and value are required")
	}
	name := cmd.Args().First()
	value := strings.Join(cmd.Args().Tail(), " ")

	doc, perr := checkDeclaration(env.Spec, name, value, cmd.Bool("defaults"))
	if perr != nil {
		log.Debug("Declaration rejected", zap.String("name", name), zap.String("value", value), zap.Error(perr))
	}

	format := outputFormat(env, cmd, log)
	var (
		data []byte
		err  error
	)
	switch format {
	case common.OutputFmtYaml, common.OutputFmtIon:
		data, err = marshal(doc, format)
	case common.OutputFmtCss:
		data = []byte(checkCSS(doc))
	default:
		data = []byte(checkText(doc))
	}
	if err != nil {
		return err
	}
	if err := writeOutput(env, "", "check"+format.Ext(), data, log); err != nil {
		return err
	}
	if perr != nil {
		return fmt.Errorf("declaration rejected: %w", perr)
	}
	return nil
}

// checkDeclaration parses declaration into a fresh dictionary, optionally
// prefilled with default values.
func checkDeclaration(s *spec.Specification, name, value string, defaults bool) (checkDoc, error) {
	doc := checkDoc{Declaration: name + ": " + value, Properties: []propertyDoc{}}

	dict := spec.NewDictionary()
	if defaults {
		s.SetPropertyDefaults(dict)
	}
	err := s.ParsePropertyDeclaration(dict, name, value, commandLineSource, 0)
	if err != nil {
		doc.Error = err.Error()
	} else {
		doc.Accepted = true
	}
	doc.Properties = newPropertyDocs(s, dict)
	return doc, err
}

func checkText(doc checkDoc) string {
	var sb strings.Builder
	if doc.Accepted {
		fmt.Fprintf(&sb, "%s\n", doc.Declaration)
	} else {
		fmt.Fprintf(&sb, "%s\n  rejected: %s\n", doc.Declaration, doc.Error)
	}
	for _, p := range doc.Properties {
		fmt.Fprintf(&sb, "  %s: %s (%s)\n", p.Name, p.Value, p.Type)
	}
	return sb.String()
}

func checkCSS(doc checkDoc) string {
	var sb strings.Builder
	if !doc.Accepted {
		fmt.Fprintf(&sb, "/* rejected: %s */\n", doc.Error)
	}
	for _, p := range doc.Properties {
		fmt.Fprintf(&sb, "%s: %s;\n", p.Name, p.Value)
	}
	return sb.String()
}
