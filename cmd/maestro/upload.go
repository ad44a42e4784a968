package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gocloud.dev/blob"

	"github.com/voxmedia/maestro-go/pkg/maestro"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <key>",
	Short: "Upload data for an external table and load it",
	Long: `Uploads the blob at <key> in the source bucket to the table's signed
upload URL, then asks the server to load it and waits for the load to
finish. Only external tables accept uploads.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key := args[0]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		src, _ := cmd.Flags().GetString("src")
		if src == "" {
			src = cfg.Dest
		}
		if src == "" {
			return errors.New("a source bucket is required (--src or dest in config)")
		}

		tbl, err := openTable(ctx, cfg)
		if err != nil {
			return err
		}
		defer tbl.Close(ctx)

		bucket, err := blob.OpenBucket(ctx, src)
		if err != nil {
			return fmt.Errorf("open bucket %s: %w", src, err)
		}
		defer bucket.Close()

		if err := tbl.Upload(ctx, bucket, key); err != nil {
			switch {
			case errors.Is(err, maestro.ErrNotExternal):
				return errors.New("table is not external, it does not accept uploads")
			case errors.Is(err, maestro.ErrNoUploadURL):
				return errors.New("table has no upload URL")
			}
			return err
		}

		logger.WithField("key", key).Info("upload and load complete")
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("src", "", "source bucket URL")
	rootCmd.AddCommand(uploadCmd)
}
