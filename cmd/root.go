package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/config"
)

var (
	cfg *config.Config

	// logLevel overrides log.level from the config file when set.
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "corpus-cli",
	Short:        "Ingest, flatten and browse product JSON corpora",
	Long:         "Reads directories of product JSON files through a per-dataset adapter, keeps the records that survive the literal round trip, flattens them into single-level attribute maps and indexes the union of their columns. Results can be saved, exported or served over HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if err := config.InitLogger(c.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		cfg = c

		zap.L().Debug("config loaded",
			zap.String("command", cmd.Name()),
			zap.Int("datasets", len(c.Datasets)),
			zap.String("store_driver", c.Store.Driver),
		)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
