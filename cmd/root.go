package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/config"
	"github.com/oversightworks/budgetdb/internal/store"
)

var (
	cfg *config.Config

	flagStore   string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "budgetdb",
	Short: "Budget document store and consistency pipeline",
	Long:  "Loads normalized budget exhibit rows and document pages into a single-file SQLite store, maintains full-text indexes, derives reference lookups, and validates cross-source consistency.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if flagStore != "" {
			cfg.Store.Path = flagStore
		}
		if flagVerbose {
			cfg.Log.Level = "debug"
			cfg.Log.Format = "console"
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "store path override")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose console logging")
}

// openExistingStore opens the configured store, failing if the file does
// not exist yet. Build creates stores; every other surface reads one.
func openExistingStore() (*store.SQLite, error) {
	path := cfg.Store.Path
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "store %s not found (run 'budgetdb build' first)", path)
	}
	return store.Open(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
