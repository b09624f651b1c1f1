package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/stratavcs/strata/pkg/worktree"
	"github.com/spf13/cobra"
)

func newCherryPickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cherry-pick <commit>",
		Short: "Replay a single commit onto the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			pick, err := r.ResolveCommit(args[0])
			if err != nil {
				return err
			}
			head, err := r.ResolveCommit("HEAD")
			if err != nil {
				return err
			}
			headCommit, err := r.Store.ReadCommit(head)
			if err != nil {
				return err
			}

			result, err := r.CherryPick(pick)
			if err != nil {
				return err
			}

			if len(result.Conflicts) > 0 {
				if err := worktree.Materialize(r, result.Tree, headCommit.TreeHash); err != nil {
					return err
				}
				printConflicts(out, result.Conflicts)
				return fmt.Errorf("cherry-pick of %s failed; fix conflicts and commit the result", shortHash(string(pick)))
			}

			if err := worktree.Materialize(r, result.Tree, headCommit.TreeHash); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cherry-picked %s as %s\n", shortHash(string(pick)), shortHash(string(result.Commit)))
			return nil
		},
	}
}
