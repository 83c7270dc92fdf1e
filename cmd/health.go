package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run a one-shot health check",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		health := env.Job.HealthCheck(ctx)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(health); err != nil {
			return err
		}
		if !health.Healthy() {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
