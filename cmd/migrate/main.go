// Command migrate applies, inspects and rolls back the database schema.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/config"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd(connect).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

// opener returns a database handle with no schema applied yet.
type opener func() (*gorm.DB, *config.Config, error)

func connect() (*gorm.DB, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return db, cfg, nil
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	withDB := func(run func(ctx context.Context, out io.Writer, db *gorm.DB, cfg *config.Config, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, cfg, err := open()
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return run(ctx, cmd.OutOrStdout(), db, cfg, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending SQL migrations",
			Args:  cobra.NoArgs,
			RunE:  withDB(up),
		},
		&cobra.Command{
			Use:   "auto",
			Short: "Run GORM AutoMigrate for every model",
			Args:  cobra.NoArgs,
			RunE:  withDB(auto),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the schema policy and pending migrations",
			Args:  cobra.NoArgs,
			RunE:  withDB(status),
		},
		&cobra.Command{
			Use:   "down [version]",
			Short: "Roll back the latest migration",
			Long:  "Roll back the most recently applied migration. When a version is given it must be that migration.",
			Args:  cobra.MaximumNArgs(1),
			RunE:  withDB(down),
		},
	)
	return root
}

func up(ctx context.Context, out io.Writer, db *gorm.DB, _ *config.Config, _ []string) error {
	n, err := database.NewMigrator(db, database.Migrations()).Up(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		_, _ = fmt.Fprintln(out, "schema is up to date")
		return nil
	}
	_, _ = fmt.Fprintf(out, "applied %d migration(s)\n", n)
	return nil
}

func auto(ctx context.Context, out io.Writer, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "auto-migrate complete")
	return nil
}

func status(ctx context.Context, out io.Writer, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "mode\t%s\n", st.Mode)
	_, _ = fmt.Fprintf(tw, "environment\t%s\n", st.Environment)
	_, _ = fmt.Fprintf(tw, "sql migrations\t%t\n", st.RunSQL)
	_, _ = fmt.Fprintf(tw, "auto-migrate\t%t\n", st.RunAuto)
	_, _ = fmt.Fprintf(tw, "applied\t%d\n", len(st.AppliedVersions))
	_, _ = fmt.Fprintf(tw, "pending\t%d\n", len(st.PendingMigrations))
	for _, m := range st.PendingMigrations {
		_, _ = fmt.Fprintf(tw, "\t%s\n", m)
	}
	return tw.Flush()
}

func down(ctx context.Context, out io.Writer, db *gorm.DB, _ *config.Config, args []string) error {
	m := database.NewMigrator(db, database.Migrations())

	var version int
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid version %q", args[0])
		}
		version = v
	} else {
		applied, err := m.Applied(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			return errors.New("no migrations have been applied")
		}
		version = applied[len(applied)-1].Version
	}

	if err := m.Down(ctx, version); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "rolled back %06d\n", version)
	return nil
}
