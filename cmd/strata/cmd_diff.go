package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/diff"
	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	var context int
	var stat bool

	cmd := &cobra.Command{
		Use:   "diff <from> <to>",
		Short: "Show changes between two commits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			fromHash, err := r.ResolveCommit(args[0])
			if err != nil {
				return err
			}
			toHash, err := r.ResolveCommit(args[1])
			if err != nil {
				return err
			}

			fromCommit, err := r.Store.ReadCommit(fromHash)
			if err != nil {
				return err
			}
			toCommit, err := r.Store.ReadCommit(toHash)
			if err != nil {
				return err
			}

			changes, err := r.DiffTrees(fromCommit.TreeHash, toCommit.TreeHash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if stat {
				for _, c := range changes {
					fmt.Fprintf(out, "%-9s %s\n", c.Kind, c.Path)
				}
				fmt.Fprintf(out, "%d path(s) changed\n", len(changes))
				return nil
			}

			for _, c := range changes {
				var before, after []byte
				if c.OldBlob != "" {
					blob, err := r.Store.ReadBlob(c.OldBlob)
					if err != nil {
						return err
					}
					before = blob.Data
				}
				if c.NewBlob != "" {
					blob, err := r.Store.ReadBlob(c.NewBlob)
					if err != nil {
						return err
					}
					after = blob.Data
				}

				patch, err := diff.Unified(c.Path, before, after, diff.UnifiedOptions{Context: context})
				if err != nil {
					return err
				}
				fmt.Fprint(out, patch)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&context, "unified", "U", 3, "lines of context per hunk")
	cmd.Flags().BoolVar(&stat, "stat", false, "list changed paths only")
	return cmd
}
