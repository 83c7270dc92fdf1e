package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/linkedin-ingestor/internal/ingest"
)

var ingestZip string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion and print the run status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		status, err := env.Job.Run(ctx, ingestZip)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			return err
		}
		if status.Outcome == ingest.OutcomeFailed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestZip, "zip", "", "archive path (default: newest ZIP in the incoming directory)")
	rootCmd.AddCommand(ingestCmd)
}
