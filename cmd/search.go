package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over budget line titles and page text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		hits, err := st.Search(ctx, strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		if len(hits) == 0 {
			fmt.Println("No matches")
			return nil
		}
		for _, h := range hits {
			fmt.Printf("%-4s %s: %s\n", h.Kind, h.SourceFile, h.Label)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 20, "max hits per table")
	rootCmd.AddCommand(searchCmd)
}
