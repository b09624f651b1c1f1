package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newGCCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove objects unreachable from any reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			summary, err := r.GC(dryRun)
			if err != nil {
				return err
			}

			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"scanned %d object(s), %d reachable, %s %d\n",
				summary.Scanned, summary.Reachable, verb, summary.Removed,
			)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report without deleting")
	return cmd
}
