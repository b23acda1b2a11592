package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/permit-radar/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "permit-radar",
	Short: "Commercial construction permit lead pipeline",
	Long:  "Normalizes and deduplicates permit records from multiple feeds, classifies and scores leads, and surfaces geographic clusters and hotspots.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
