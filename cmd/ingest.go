package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/ingest"
	"github.com/sells-group/corpus-cli/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest all configured datasets and print run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		save, _ := cmd.Flags().GetBool("save")

		mode := "ingest"
		if save {
			mode = "store"
		}
		res, cols, err := runIngest(ctx, cfg, mode, nil)
		if err != nil {
			return err
		}

		formatStats(cmd.OutOrStdout(), res, cols.Len())

		if !save {
			return nil
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.SaveResult(ctx, res, cols)
		if err != nil {
			return eris.Wrap(err, "ingest save")
		}
		zap.L().Info("result saved",
			zap.String("driver", cfg.Store.Driver),
			zap.Int64("records", n),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %d records to %s store.\n", n, cfg.Store.Driver)
		return nil
	},
}

// formatStats writes a per-subdomain record table followed by run totals.
func formatStats(w io.Writer, res *ingest.Result, columns int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBDOMAIN\tRECORDS")
	for _, sub := range res.Subdomains() {
		fmt.Fprintf(tw, "%s\t%d\n", sub, len(res.IDs(sub)))
	}
	tw.Flush() //nolint:errcheck

	s := res.Stats
	fmt.Fprintf(w, "\nDatasets: %d (%d failed)\n", s.Datasets, s.DatasetsFailed)
	fmt.Fprintf(w, "Subdomains: %d\n", s.Subdomains)
	fmt.Fprintf(w, "Records: %d shaped, %d stored, %d invalid, %d flatten errors, %d invalid after flatten\n",
		s.Shaped, s.Stored, s.Invalid, s.FlattenErrors, s.InvalidFlat)
	fmt.Fprintf(w, "Columns: %d\n", columns)
}

func init() {
	ingestCmd.Flags().Bool("save", false, "save the result to the configured store")
	rootCmd.AddCommand(ingestCmd)
}
