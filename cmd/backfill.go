package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/backfill"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Derive reference lookup tables from loaded budget lines",
	Long: `Populate the organization, exhibit category, and appropriation title
lookup tables from the distinct values in loaded budget lines.

Insert-if-absent: existing rows, including pre-seeded classifications, are
never overwritten, so running backfill twice inserts nothing the second time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		rulesPath, _ := cmd.Flags().GetString("rules")

		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		rules := backfill.DefaultRules()
		if rulesPath == "" {
			rulesPath = cfg.Backfill.RulesPath
		}
		if rulesPath != "" {
			rules, err = backfill.LoadRules(rulesPath)
			if err != nil {
				return err
			}
			zap.L().Info("loaded classification rules",
				zap.String("path", rulesPath),
				zap.Int("version", rules.Version),
			)
		}

		counts, err := backfill.New(st, rules).Run(ctx, dryRun)
		if err != nil {
			return err
		}

		verb := "Inserted"
		if dryRun {
			verb = "Would insert"
		}
		fmt.Printf("%s %d organizations, %d exhibit categories, %d appropriation titles\n",
			verb, counts.Organizations, counts.ExhibitCategories, counts.AppropriationTitles)
		return nil
	},
}

func init() {
	backfillCmd.Flags().Bool("dry-run", false, "compute counts without mutating the store")
	backfillCmd.Flags().String("rules", "", "classification rules YAML (default: built-in ruleset)")
	rootCmd.AddCommand(backfillCmd)
}
