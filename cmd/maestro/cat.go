package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxmedia/maestro-go/pkg/export"
)

var catCmd = &cobra.Command{
	Use:   "cat",
	Short: "Stream the table's export files to stdout",
	Long: `Streams the table's gzip-compressed export files to stdout as one
decompressed CSV: the header line of every file after the first is
dropped so the output carries a single header.`,
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

		reader, err := tbl.Reader(ctx, export.WithChunkSize(int(cfg.ChunkSize)))
		if err != nil {
			if errors.Is(err, export.ErrNoData) {
				return errors.New("table has no export files")
			}
			return err
		}
		defer reader.Close()

		if _, err := io.Copy(os.Stdout, reader); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
