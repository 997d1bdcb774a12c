package inspect

import (
	"context"
	"errors"
	"fmt"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rcss/state"
	"rcss/store"
)

// Export parses sources and writes specification with resolved declarations
// into SQLite database.
func Export(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("export")

	if cmd.NArg() == 0 {
		return errors.New("no database has been specified")
	}
	db := cmd.Args().First()

	log.Info("Export starting", zap.String("database", db), zap.Strings("sources", cmd.Args().Tail()))
	defer func(start time.Time) {
		log.Info("Export completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	// specification alone is useful too, sources are optional
	sheets, err := loadSheets(ctx, env, cmd.Args().Tail(), log)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if cmd.Bool("defaults") || env.Cfg.Specification.Defaults {
		for _, sheet := range sheets {
			applyDefaults(env.Spec, sheet)
		}
	}

	if xerr := store.Export(db, env.Spec, env.Log, sheets...); xerr != nil {
		return multierr.Append(err, fmt.Errorf("unable to export: %w", xerr))
	}
	return err
}
