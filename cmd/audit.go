package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oversightworks/budgetdb/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Score ingested page text for extraction failure signatures",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Audit.MaxListed
		}

		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := audit.New(st).Run(ctx)
		if err != nil {
			return err
		}

		fmt.Print(report.Render(limit))
		return nil
	},
}

func init() {
	auditCmd.Flags().Int("limit", 0, "max flagged pages to list (default from config)")
	rootCmd.AddCommand(auditCmd)
}
