package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oversightworks/budgetdb/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run cross-service and cross-exhibit consistency checks",
	Long: `Compare service-level sums against department roll-up rows, and summary
exhibit totals against their detail exhibits, per amount field. Findings
outside tolerance are reported, not fatal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rcfg, err := reconcileConfig(cmd)
		if err != nil {
			return err
		}

		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := reconcile.New(st, rcfg).Run(ctx)
		if err != nil {
			return err
		}

		fmt.Print(report.Render())
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Float64("tolerance", 0, "tolerance in thousands of dollars (default from config)")
	reconcileCmd.Flags().String("rollup-org", "", "organization value of department roll-up rows")
	rootCmd.AddCommand(reconcileCmd)
}

func reconcileConfig(cmd *cobra.Command) (reconcile.Config, error) {
	rcfg := reconcile.Config{
		ToleranceThousands: cfg.Reconcile.ToleranceThousands,
		RollupOrg:          cfg.Reconcile.RollupOrg,
	}

	if tol, _ := cmd.Flags().GetFloat64("tolerance"); tol > 0 {
		rcfg.ToleranceThousands = tol
	}
	if org, _ := cmd.Flags().GetString("rollup-org"); org != "" {
		rcfg.RollupOrg = org
	}

	for _, pair := range cfg.Reconcile.ExhibitPairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return reconcile.Config{}, eris.Errorf("reconcile: bad exhibit pair %q (want summary:detail)", pair)
		}
		rcfg.ExhibitPairs = append(rcfg.ExhibitPairs, reconcile.ExhibitPair{
			Summary: strings.TrimSpace(parts[0]),
			Detail:  strings.TrimSpace(parts[1]),
		})
	}
	if len(rcfg.ExhibitPairs) == 0 {
		rcfg.ExhibitPairs = reconcile.DefaultConfig().ExhibitPairs
	}

	return rcfg, nil
}
