// Команда migrate применяет и откатывает встроенные миграции PostgreSQL.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/ordersvc/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (int64, int, error)
	Migrations(ctx context.Context) ([]postgres.MigrationInfo, error)
	Close() error
}

type opener func(ctx context.Context, dsn string) (migrator, error)

func openPostgres(ctx context.Context, dsn string) (migrator, error) {
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func main() {
	if err := newRootCommand(openPostgres).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(open opener) *cobra.Command {
	var (
		dsn     string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage ordersvc PostgreSQL schema migrations",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: ORDERSVC_POSTGRES_DSN)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "overall operation timeout")

	// withStore открывает хранилище с таймаутом и закрывает его после fn.
	withStore := func(cmd *cobra.Command, fn func(ctx context.Context, m migrator) error) error {
		if strings.TrimSpace(dsn) == "" {
			dsn = strings.TrimSpace(os.Getenv("ORDERSVC_POSTGRES_DSN"))
		}
		if dsn == "" {
			return fmt.Errorf("ORDERSVC_POSTGRES_DSN (or --dsn) is required")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		m, err := open(ctx, dsn)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		defer m.Close()

		return fn(ctx, m)
	}

	var upSteps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, m migrator) error {
				if err := m.MigrateUp(ctx, upSteps); err != nil {
					return fmt.Errorf("migrate up failed: %w", err)
				}
				return printVersion(ctx, cmd.OutOrStdout(), m, "migrate up ok")
			})
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "number of migrations to apply (0 = all)")

	var downSteps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, m migrator) error {
				if downSteps <= 0 {
					downSteps = 1
				}
				if err := m.MigrateDown(ctx, downSteps); err != nil {
					return fmt.Errorf("migrate down failed: %w", err)
				}
				return printVersion(ctx, cmd.OutOrStdout(), m, "migrate down ok")
			})
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, m migrator) error {
				return printStatus(ctx, cmd.OutOrStdout(), m)
			})
		},
	}

	root.AddCommand(up, down, status)
	return root
}

func printVersion(ctx context.Context, w io.Writer, m migrator, prefix string) error {
	version, count, err := m.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s: version=%d applied=%d\n", prefix, version, count)
	return err
}

func printStatus(ctx context.Context, w io.Writer, m migrator) error {
	migrations, err := m.Migrations(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, info := range migrations {
		state, appliedAt := "pending", "-"
		if info.Applied {
			state = "applied"
			appliedAt = info.AppliedAt.UTC().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(tw, "%04d\t%s\t%s\t%s\n", info.Version, info.Name, state, appliedAt)
	}
	return tw.Flush()
}
