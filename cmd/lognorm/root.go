package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PhucNguyen204/lognorm/internal/config"
	"github.com/PhucNguyen204/lognorm/internal/logx"
	"github.com/PhucNguyen204/lognorm/pkg/lognorm"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lognorm",
		Short:         "Normalize log lines into structured records using sample rulebases",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newNormalizeCmd(),
		newCheckCmd(),
		newStoreCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "lognorm %s\n", lognorm.Version())
			return err
		},
	}
}

// loadRuntime reads the config file and builds the process logger.
func loadRuntime(cfgPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logx.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
