package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/corpus-cli/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the flattened records to an XLSX workbook, one sheet per subdomain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Export.XLSXPath
		}

		res, cols, err := runIngest(cmd.Context(), cfg, "ingest", nil)
		if err != nil {
			return err
		}
		if err := export.WriteWorkbook(out, res, cols); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", res.Len(), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "workbook path (default from config)")
	rootCmd.AddCommand(exportCmd)
}
