package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tihomirborovcak/radni-nalozi/internal/config"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "radninalozi",
	Short:         "Print-shop work orders with a material stock ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		log, err = logger.New(logger.Config{
			Level:       cfg.Log.Level,
			Development: cfg.Log.Development,
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml, optional)")
}
