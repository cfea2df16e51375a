package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/internal/config"
	"github.com/PhucNguyen204/lognorm/internal/rulestore"
)

// openStore is replaced in tests.
var openStore = func(ctx context.Context, dsn string, opts ir.CtxOpt) (*rulestore.Store, error) {
	return rulestore.Open(ctx, dsn, opts)
}

type storeOptions struct {
	cfgPath string
	dsn     string
}

func newStoreCmd() *cobra.Command {
	var opts storeOptions
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage rulebases kept in PostgreSQL",
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.cfgPath, "config", "", "config yaml path")
	pf.StringVar(&opts.dsn, "dsn", "", "postgres DSN (default store.dsn from config)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the rulebase table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, opts, func(ctx context.Context, s *rulestore.Store) error {
					return s.InitSchema(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "push <file> [name]",
			Short: "Validate a rulebase file and store it (name defaults to the file name)",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				body, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				name := filepath.Base(args[0])
				if len(args) == 2 {
					name = args[1]
				}
				return withStore(cmd, opts, func(ctx context.Context, s *rulestore.Store) error {
					if err := s.Put(ctx, name, string(body)); err != nil {
						return err
					}
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", name)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "pull <name>",
			Short: "Print a stored rulebase",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, opts, func(ctx context.Context, s *rulestore.Store) error {
					rb, err := s.Get(ctx, args[0])
					if err != nil {
						return err
					}
					_, err = fmt.Fprint(cmd.OutOrStdout(), rb.Body)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored rulebases",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, opts, func(ctx context.Context, s *rulestore.Store) error {
					list, err := s.List(ctx)
					if err != nil {
						return err
					}
					for _, rb := range list {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rb.Name, rb.UpdatedAt.Format(time.RFC3339))
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func withStore(cmd *cobra.Command, opts storeOptions, fn func(context.Context, *rulestore.Store) error) error {
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dsn := opts.dsn
	if dsn == "" {
		dsn = cfg.Store.DSN
	}
	if dsn == "" {
		return errors.New("no store: pass --dsn or set store.dsn")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	s, err := openStore(ctx, dsn, cfg.Engine.Options())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
