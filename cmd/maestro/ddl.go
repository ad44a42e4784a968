package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print Postgres DDL matching the table's schema",
	Long: `Prints a CREATE TABLE statement for Postgres matching the table's
BigQuery schema. Columns with RECORD types or REPEATED mode have no
Postgres equivalent and cause an error.`,
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

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = fmt.Sprintf("%s.%s", tbl.Dataset(), tbl.Name())
		}
		ifNotExists, _ := cmd.Flags().GetBool("if-not-exists")

		ddl, err := tbl.PostgresDDL(ctx, name, ifNotExists)
		if err != nil {
			return err
		}

		fmt.Println(ddl)
		return nil
	},
}

func init() {
	ddlCmd.Flags().String("name", "", "target table name (default: the table's dataset.name)")
	ddlCmd.Flags().Bool("if-not-exists", false, "emit CREATE TABLE IF NOT EXISTS")
	rootCmd.AddCommand(ddlCmd)
}
