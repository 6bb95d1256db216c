package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oversightworks/budgetdb/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the store and prune old backups",
	Long: `Write a consistent online copy of the store (writers are not blocked)
named <prefix>_YYYYMMDD_HHMMSS.db, then delete all but the --keep most
recent backups by name order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dest, _ := cmd.Flags().GetString("dest")
		prefix, _ := cmd.Flags().GetString("prefix")
		keep, _ := cmd.Flags().GetInt("keep")
		noPrune, _ := cmd.Flags().GetBool("no-prune")

		if dest == "" {
			dest = cfg.Backup.Dir
		}
		if prefix == "" {
			prefix = cfg.Backup.Prefix
		}
		if keep == 0 {
			keep = cfg.Backup.Keep
		}

		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		path, err := backup.OnlineCopy(ctx, st, dest, prefix)
		if err != nil {
			return err
		}
		fmt.Printf("Backup written: %s\n", path)

		if noPrune {
			return nil
		}
		deleted, err := backup.PruneOldest(dest, prefix, keep)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d old backups (kept %d)\n", len(deleted), keep)
		return nil
	},
}

func init() {
	backupCmd.Flags().String("dest", "", "backup directory (default from config)")
	backupCmd.Flags().String("prefix", "", "backup filename prefix (default from config)")
	backupCmd.Flags().Int("keep", 0, "backups to retain when pruning (default from config)")
	backupCmd.Flags().Bool("no-prune", false, "skip pruning after the copy")
	rootCmd.AddCommand(backupCmd)
}
