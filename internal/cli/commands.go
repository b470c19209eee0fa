// Package cli implements stockctl, the operator command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stockflow/internal/config"
	"stockflow/internal/db"
	"stockflow/internal/excel"
	"stockflow/internal/memstore"
	"stockflow/internal/repository"
	"stockflow/internal/service"
)

type backend struct {
	store   service.Store
	migrate func(ctx context.Context) ([]string, error)
	close   func()
}

type opener func(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*backend, error)

func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func NewRootCommand(out io.Writer) *cobra.Command {
	return newRootCommand(out, openBackend)
}

func newRootCommand(out io.Writer, open opener) *cobra.Command {
	v := viper.New()
	var logger *slog.Logger

	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "Operate the stockflow inventory service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg := v.GetString("config"); cfg != "" {
				v.SetConfigFile(cfg)
				if strings.HasSuffix(cfg, ".env") {
					v.SetConfigType("env")
				}
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", cfg, err)
				}
			}
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
				return fmt.Errorf("invalid log level %q", v.GetString("log-level"))
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
			return nil
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (.env, yaml or json)")
	flags.String("store-driver", config.DriverPostgres, "store backend: postgres|memory")
	flags.String("database-url", "", "postgres connection string")
	flags.String("log-level", "info", "log level")
	for _, name := range []string{"config", "store-driver", "database-url", "log-level"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	// STORE_DRIVER and DATABASE_URL are shared with the server.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	withBackend := func(run func(ctx context.Context, b *backend) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			b, err := open(ctx, v, logger)
			if err != nil {
				return err
			}
			defer b.close()
			return run(ctx, b)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, b *backend) error {
			if b.migrate == nil {
				return errors.New("migrate requires the postgres store driver")
			}
			applied, err := b.migrate(ctx)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema up to date")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintln(out, "applied", version)
			}
			return nil
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "import-products <file>",
		Short: "Upsert products from an xlsx or csv sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return withBackend(func(ctx context.Context, b *backend) error {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				defer f.Close()

				rows, err := excel.ParseProductRows(path, f)
				if err != nil {
					return err
				}
				svc := service.New(b.store, nil, logger)
				result, err := svc.ImportProducts(ctx, rows)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "rows=%d created=%d updated=%d\n", len(rows), result.Created, result.Updated)
				return nil
			})(cmd, args)
		},
	})

	var asJSON bool
	lowStock := &cobra.Command{
		Use:   "low-stock",
		Short: "List active products at or below their reorder threshold",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, b *backend) error {
			items, err := service.New(b.store, nil, logger).LowStock(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTOCK\tTHRESHOLD")
			for _, p := range items {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", p.ID, p.Name, p.Stock, p.ReorderThreshold)
			}
			return tw.Flush()
		}),
	}
	lowStock.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	root.AddCommand(lowStock)

	return root
}

func openBackend(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*backend, error) {
	switch driver := strings.ToLower(v.GetString("store-driver")); driver {
	case config.DriverMemory:
		return &backend{store: memstore.New(), close: func() {}}, nil
	case config.DriverPostgres:
		url := v.GetString("database-url")
		if url == "" {
			return nil, errors.New("database url is required (--database-url or DATABASE_URL)")
		}
		pool, err := db.NewPool(ctx, url, db.PoolOptions{MaxConns: 4, MinConns: 1})
		if err != nil {
			return nil, err
		}
		return &backend{
			store: repository.New(pool),
			migrate: func(ctx context.Context) ([]string, error) {
				return db.RunMigrations(ctx, pool, logger)
			},
			close: pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("invalid store driver %q", driver)
	}
}
