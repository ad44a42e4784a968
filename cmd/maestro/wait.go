package main

import (
	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the table's current run to finish",
	Long: `Waits until the table's run completes, polling the server with an
increasing interval. External tables are waited on until they stop
running; internal tables until a new successful run end time appears.
Exits non-zero if the run fails server-side.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		tbl, err := openTable(ctx, cfg)
		if err != nil {
			return err
		}
		defer tbl.Close(ctx)

		if err := tbl.Wait(ctx); err != nil {
			return err
		}

		logger.WithField("table", cfg.Table).Info("run complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
}
