// SPDX-License-Identifier: MIT

// Command kcomplex estimates the algorithmic complexity of 1-D and 2-D
// symbol arrays with the Block Decomposition Method and manages the CTM
// reference tables it relies on.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/kcomplex/config"
)

var (
	configPath string
	tablePath  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kcomplex",
	Short: "Block Decomposition Method complexity estimates",
	Long: `kcomplex estimates the algorithmic complexity of small 1-D and 2-D
symbol arrays. Arrays are cut into blocks whose Coding Theorem Method values
are looked up in a reference table; the values are combined into the BDM.

Tables are read from the store configured with --config (local directory,
S3 or MinIO) or directly from a file given with --table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg = config.Default()
			cfg.ApplyEnv()
			err = cfg.Validate()
		}
		if err != nil {
			return err
		}

		logger, err = cfg.ZapConfig(verbose).Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (.yaml, .yml or .hcl)")
	rootCmd.PersistentFlags().StringVar(&tablePath, "table", "", "read the CTM table from this .kctm file instead of the store")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(bdmCmd, entCmd, perturbCmd, ctmCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
