package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Repo.ListIngestionRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no ingestion runs yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSTATUS\tSTARTED\tMESSAGES\tSOURCE")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
				run.ID,
				run.Status,
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Counters.MessagesInserted,
				run.Counters.MessagesFound,
				run.SourcePath,
			)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
