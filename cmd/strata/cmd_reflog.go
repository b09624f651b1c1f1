package main

import (
	"fmt"
	"time"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newReflogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reflog [ref]",
		Short: "Show recorded movements of a reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			ref := "HEAD"
			if len(args) == 1 {
				ref = args[0]
			}
			entries, err := r.ReadReflog(ref, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s %s -> %s  %s  %s\n",
					e.Ref,
					shortHash(string(e.OldHash)),
					shortHash(string(e.NewHash)),
					time.Unix(e.Timestamp, 0).Format(time.RFC3339),
					e.Reason,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of entries (0 = all)")
	return cmd
}
