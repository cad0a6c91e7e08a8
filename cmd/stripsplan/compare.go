package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/planner"
	"github.com/rogersf/strips-engine/internal/problemfile"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		heur  string
		bound float64
	)
	cmd := &cobra.Command{
		Use:   "compare <problem.yaml>",
		Short: "Run every direction and strategy on a problem side by side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := problemfile.Load(args[0])
			if err != nil {
				return err
			}
			problem, err := spec.Build()
			if err != nil {
				return err
			}
			if bound <= 0 {
				bound = spec.Bound
			}

			var reqs []planner.Request
			for _, dir := range []domain.Direction{domain.DirectionForward, domain.DirectionRegression} {
				for _, strategy := range []domain.Strategy{domain.StrategyMPP, domain.StrategyBranchAndBound} {
					reqs = append(reqs, planner.Request{
						Problem:   problem,
						Direction: dir,
						Strategy:  strategy,
						Heuristic: firstNonEmpty(heur, spec.Heuristic),
						Bound:     bound,
					})
				}
			}

			results, err := a.newService(nil).Compare(cmd.Context(), reqs...)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DIRECTION\tSTRATEGY\tSTATUS\tCOST\tSTEPS\tEXPANDED\tPRUNED")
			for _, res := range results {
				if res == nil {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%d\t%d\t%d\n",
					res.Direction, res.Strategy, res.Status, res.Plan.Cost, res.Plan.Len(), res.Stats.Expanded, res.Stats.Pruned)
			}
			tw.Flush()
			return err
		},
	}
	cmd.Flags().StringVar(&heur, "heuristic", "", "heuristic for every run (default: file, then config)")
	cmd.Flags().Float64Var(&bound, "bound", 0, "exclusive cost bound for the bnb runs (default: file, then config)")
	return cmd
}
