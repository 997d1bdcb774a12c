// Package inspect implements program commands: it builds property
// specification from configuration, resolves style sources against it and
// reports results.
package inspect

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"rcss/builtin"
	"rcss/config"
	"rcss/state"
)

// Prepare builds and seals specification requested by configuration and
// command line. It is used as Before hook by every command which needs one.
func Prepare(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	env := state.EnvFromContext(ctx)
	if env.Spec != nil {
		return ctx, nil
	}
	if env.Cfg == nil {
		return ctx, fmt.Errorf("configuration is not loaded")
	}
	log := env.Log.Named("prepare")

	opts := buildOptions(env.Cfg, cmd.StringSlice("definitions"))
	s, err := builtin.Build(env.Log, opts)
	if err != nil {
		return ctx, fmt.Errorf("unable to build property specification: %w", err)
	}
	env.Spec = s

	for _, fname := range opts.Definitions {
		if err := env.Rpt.StoreCopy("definitions/"+filepath.Base(fname), fname); err != nil {
			log.Warn("Unable to store definitions in report", zap.String("file", fname), zap.Error(err))
		}
	}

	// Since many stylesheets do not declare their encoding we may need to
	// force archaic code page for them
	if cp := env.Cfg.Output.Charset; len(cp) > 0 {
		enc, err := ianaindex.IANA.Encoding(cp)
		switch {
		case err != nil:
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
		case enc == nil:
			log.Warn("Character set is not supported. Ignoring...", zap.String("charset", cp))
		default:
			env.CodePage = enc
			n, _ := ianaindex.IANA.Name(enc)
			log.Debug("Using character set for sources without declared encoding", zap.String("charset", n))
		}
	}

	log.Debug("Specification ready",
		zap.Int("properties", len(s.GetRegisteredProperties())),
		zap.Int("shorthands", len(s.Shorthands())),
		zap.Strings("definitions", opts.Definitions))
	return ctx, nil
}

// buildOptions merges configuration with definition files requested on
// command line, configured files go first.
func buildOptions(cfg *config.Config, extra []string) builtin.Options {
	return builtin.Options{
		Definitions:       slices.Concat(cfg.Specification.Definitions, extra),
		CommaLists:        slices.Clone(cfg.Specification.SplitCommas),
		ReserveProperties: cfg.Specification.ReserveProperties,
		ReserveShorthands: cfg.Specification.ReserveShorthands,
	}
}
