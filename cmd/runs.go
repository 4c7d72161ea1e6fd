package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/corpus-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved ingestion runs",
	Long:  "Commands for listing saved runs and the records and columns they stored.",
}

// openStore opens and migrates the configured store.
func openStore(cmd *cobra.Command) (store.Store, error) {
	st, err := store.Open(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(cmd.Context(), limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs records --

var runsRecordsCmd = &cobra.Command{
	Use:   "records <subdomain>",
	Short: "Print the saved clean records of a subdomain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recs, err := st.ListRecords(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "runs records")
		}
		if len(recs) == 0 {
			fmt.Fprintf(os.Stderr, "No records saved for %s.\n", args[0])
			return nil
		}

		formatRecords(cmd.OutOrStdout(), recs)
		return nil
	},
}

// -- runs columns --

var runsColumnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Print every column name saved so far",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		names, err := st.ListColumns(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "runs columns")
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsRecordsCmd)
	runsCmd.AddCommand(runsColumnsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tDATASETS\tFAILED\tSTORED\tINVALID\tFLATTEN_ERR")
	_, _ = fmt.Fprintln(w, "--\t-------\t--------\t------\t------\t-------\t-----------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			truncateID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Stats.Datasets,
			r.Stats.DatasetsFailed,
			r.Stats.Stored,
			r.Stats.Invalid+r.Stats.InvalidFlat,
			r.Stats.FlattenErrors,
		)
	}
	_ = w.Flush()
}

// formatRecords writes one line per record: the id, a tab and the clean
// attributes as JSON.
func formatRecords(out io.Writer, recs []store.Record) {
	for _, r := range recs {
		_, _ = fmt.Fprintf(out, "%s\t%s\n", r.ID, r.Clean)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
