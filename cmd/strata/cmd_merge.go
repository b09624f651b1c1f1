package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/stratavcs/strata/pkg/object"
	"github.com/stratavcs/strata/pkg/repo"
	"github.com/stratavcs/strata/pkg/worktree"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "merge <branch-or-hash>",
		Short: "Merge another line of history into the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			ours, err := r.ResolveCommit("HEAD")
			if err != nil {
				return err
			}
			theirs, err := r.ResolveCommit(args[0])
			if err != nil {
				return err
			}

			result, err := r.Merge(ours, theirs)
			if err != nil {
				return err
			}

			oursCommit, err := r.Store.ReadCommit(ours)
			if err != nil {
				return err
			}

			switch result.Kind {
			case repo.MergeFastForward:
				if result.Commit == ours {
					fmt.Fprintln(out, "Already up to date.")
					return nil
				}
				if err := advanceHead(r, result.Commit, ours); err != nil {
					return err
				}
				target, err := r.Store.ReadCommit(result.Commit)
				if err != nil {
					return err
				}
				if err := worktree.Materialize(r, target.TreeHash, oursCommit.TreeHash); err != nil {
					return err
				}
				fmt.Fprintf(out, "Fast-forward to %s\n", shortHash(string(result.Commit)))
				return nil

			case repo.MergeClean:
				if message == "" {
					message = fmt.Sprintf("Merge %s", args[0])
				}
				mergeCommit, err := r.CommitMerge(result, ours, theirs, resolveAuthor(r), message)
				if err != nil {
					return err
				}
				if err := worktree.Materialize(r, result.Tree, oursCommit.TreeHash); err != nil {
					return err
				}
				fmt.Fprintf(out, "Merge made commit %s\n", shortHash(string(mergeCommit)))
				return nil

			default:
				if err := worktree.Materialize(r, result.Tree, oursCommit.TreeHash); err != nil {
					return err
				}
				printConflicts(out, result.Conflicts)
				return fmt.Errorf("automatic merge failed; fix conflicts and commit the result")
			}
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "merge commit message")
	return cmd
}

func printConflicts(out io.Writer, conflicts []repo.ConflictRecord) {
	for _, c := range conflicts {
		fmt.Fprintf(out, "CONFLICT (%s): %s\n", c.Type, c.Path)
	}
}

// advanceHead moves the current branch (or detached HEAD) with a
// compare-and-swap against the expected old commit.
func advanceHead(r *repo.Repo, target, expected object.Hash) error {
	head, err := r.Head()
	if err != nil {
		return err
	}
	if strings.HasPrefix(head, "refs/") {
		return r.UpdateRefCAS(head, target, expected)
	}
	return r.SetHead(string(target), true)
}
