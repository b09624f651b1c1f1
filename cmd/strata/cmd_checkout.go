package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/stratavcs/strata/pkg/worktree"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var createBranch bool

	cmd := &cobra.Command{
		Use:   "checkout <branch-or-hash>",
		Short: "Switch the working directory to another revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if createBranch {
				head, err := r.ResolveCommit("HEAD")
				if err != nil {
					return err
				}
				if err := r.CreateBranch(args[0], head); err != nil {
					return err
				}
			}

			if err := worktree.Checkout(r, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&createBranch, "branch", "b", false, "create the branch at HEAD before switching")
	return cmd
}
