package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/corpus-cli/internal/export"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the column names found across all flattened records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = cfg.Export.SchemaFormat
		}

		_, cols, err := runIngest(cmd.Context(), cfg, "ingest", nil)
		if err != nil {
			return err
		}
		return export.WriteSchema(cmd.OutOrStdout(), cols, format)
	},
}

func init() {
	schemaCmd.Flags().String("format", "", "output format: text, json or yaml (default from config)")
	rootCmd.AddCommand(schemaCmd)
}
