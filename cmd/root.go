package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "linkedin-ingestor",
	Short: "LinkedIn data-export ingestion pipeline",
	Long:  "Ingests LinkedIn \"Download your data\" export ZIPs into a relational store, reconciles counts, and re-packages the normalized tables.",
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
