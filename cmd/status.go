package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oversightworks/budgetdb/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts and the current load mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		mode, err := st.LoadMode(ctx)
		if err != nil {
			return err
		}

		lines, err := st.CountBudgetLines(ctx)
		if err != nil {
			return err
		}
		pages, err := st.CountPages(ctx)
		if err != nil {
			return err
		}
		idxLines, err := st.CountIndexedLines(ctx)
		if err != nil {
			return err
		}
		idxPages, err := st.CountIndexedPages(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Store: %s (mode: %s)\n", st.Path(), mode)
		fmt.Printf("  budget lines: %d (indexed: %d)\n", lines, idxLines)
		fmt.Printf("  pages:        %d (indexed: %d)\n", pages, idxPages)

		for _, table := range []string{
			store.RefOrganizations, store.RefExhibitCategories, store.RefAppropriationTitles,
		} {
			n, err := st.CountReference(ctx, table)
			if err != nil {
				return err
			}
			fmt.Printf("  %-21s %d\n", table+":", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
