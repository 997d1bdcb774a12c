package inspect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gosimple/slug"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rcss/common"
	"rcss/state"
	"rcss/stylesheet"
)

// Parse resolves every declaration of the sources against specification and
// outputs resulting rules.
func Parse(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("parse")

	if cmd.NArg() == 0 {
		return errors.New("no input source has been specified")
	}

	format := outputFormat(env, cmd, log)
	defaults := env.Cfg.Specification.Defaults || cmd.Bool("defaults")
	sorted := env.Cfg.Output.Sort || cmd.Bool("sort")

	log.Info("Processing starting", zap.Strings("sources", cmd.Args().Slice()), zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	sheets, err := loadSheets(ctx, env, cmd.Args().Slice(), log)
	if len(sheets) == 0 {
		return multierr.Append(err, errors.New("nothing has been parsed"))
	}
	if defaults {
		for _, sheet := range sheets {
			applyDefaults(env.Spec, sheet)
		}
	}
	if sorted {
		sortSheets(sheets)
	}

	data, ferr := formatSheets(sheets, format)
	if ferr != nil {
		return multierr.Append(err, ferr)
	}
	return multierr.Append(err, writeOutput(env, cmd.String("output"), "parse"+format.Ext(), data, log))
}

// loadSheets parses all sources named by arguments. Failing sources are
// reported and skipped, their errors are returned combined together with
// whatever was parsed successfully.
func loadSheets(ctx context.Context, env *state.LocalEnv, args []string, log *zap.Logger) (sheets []*stylesheet.Stylesheet, err error) {
	p := stylesheet.NewParser(env.Spec, env.Log)

	var warnings, count int
	for _, arg := range args {
		cerr := collect(ctx, arg, log, func(src source) error {
			count++
			env.Rpt.StoreData(fmt.Sprintf("sources/%03d-%s", count, slug.Make(src.name)), src.data)

			sheet, lerr := load(p, src, env.CodePage)
			if lerr != nil {
				log.Error("Unable to parse source", zap.String("source", src.name), zap.Error(lerr))
				err = multierr.Append(err, fmt.Errorf("source '%s': %w", src.name, lerr))
				return nil
			}
			for _, w := range sheet.Warnings {
				log.Debug("Declaration ignored", zap.String("warning", w))
			}
			warnings += len(sheet.Warnings)
			sheets = append(sheets, sheet)
			return nil
		})
		if cerr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sheets, ctxErr
			}
			log.Error("Unable to process source", zap.String("source", arg), zap.Error(cerr))
			err = multierr.Append(err, cerr)
		}
	}
	if warnings > 0 {
		log.Warn("Some declarations were ignored", zap.Int("count", warnings), zap.Int("stylesheets", len(sheets)))
	}
	return sheets, err
}

// outputFormat returns format requested on command line or configured one.
func outputFormat(env *state.LocalEnv, cmd *cli.Command, log *zap.Logger) common.OutputFmt {
	format := env.Cfg.Output.Format
	if !cmd.IsSet("format") {
		return format
	}
	f, err := common.ParseOutputFmt(cmd.String("format"))
	if err != nil {
		log.Warn("Unknown output format requested, using configured one", zap.Stringer("format", format), zap.Error(err))
		return format
	}
	return f
}

// writeOutput writes data to destination file or STDOUT when dest is empty
// and keeps a copy in debug report.
func writeOutput(env *state.LocalEnv, dest, name string, data []byte, log *zap.Logger) error {
	env.Rpt.StoreData("output/"+name, data)

	out := os.Stdout
	if len(dest) > 0 {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", dest, err)
		}
		defer f.Close()
		out = f
	} else {
		dest = "STDOUT"
	}
	log.Debug("Writing results", zap.String("file", dest), zap.Int("bytes", len(data)))

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("unable to write results: %w", err)
	}
	return nil
}
