package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gocloud.dev/blob"

	// Supported bucket schemes for fetch and upload.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/voxmedia/maestro-go/pkg/maestro"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the table's export files to a bucket",
	Long: `Downloads the table's export files into the destination bucket,
keyed by their base file names. The destination is a Go CDK bucket URL,
e.g. file:///tmp/exports, gs://my-bucket, or s3://my-bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		dest, _ := cmd.Flags().GetString("dest")
		if dest == "" {
			dest = cfg.Dest
		}
		if dest == "" {
			return errors.New("a destination bucket is required (--dest or dest in config)")
		}

		tbl, err := openTable(ctx, cfg)
		if err != nil {
			return err
		}
		defer tbl.Close(ctx)

		bucket, err := blob.OpenBucket(ctx, dest)
		if err != nil {
			return fmt.Errorf("open bucket %s: %w", dest, err)
		}
		defer bucket.Close()

		keys, err := tbl.Fetch(ctx, bucket)
		if err != nil {
			if errors.Is(err, maestro.ErrNoExtract) {
				return errors.New("table has no export files")
			}
			return err
		}

		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("dest", "", "destination bucket URL")
	rootCmd.AddCommand(fetchCmd)
}
