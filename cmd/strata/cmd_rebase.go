package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/stratavcs/strata/pkg/worktree"
	"github.com/spf13/cobra"
)

func newRebaseCmd() *cobra.Command {
	var doContinue bool
	var doAbort bool

	cmd := &cobra.Command{
		Use:   "rebase [onto]",
		Short: "Replay the current branch onto another base",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case doAbort:
				if err := r.AbortRebase(); err != nil {
					return err
				}
				if err := materializeHead(r); err != nil {
					return err
				}
				fmt.Fprintln(out, "Rebase aborted.")
				return nil

			case doContinue:
				resolutions, err := readConflictResolutions(r)
				if err != nil {
					return err
				}
				result, err := r.ContinueRebase(resolutions)
				if err != nil {
					if result != nil && len(result.Conflicts) > 0 {
						printConflicts(out, result.Conflicts)
					}
					return err
				}
				return reportRebase(r, out, result)

			default:
				if len(args) != 1 {
					return fmt.Errorf("rebase target is required")
				}
				onto, err := r.ResolveCommit(args[0])
				if err != nil {
					return err
				}
				result, err := r.Rebase(onto)
				if err != nil {
					return err
				}
				return reportRebase(r, out, result)
			}
		},
	}

	cmd.Flags().BoolVar(&doContinue, "continue", false, "resume after resolving conflicts")
	cmd.Flags().BoolVar(&doAbort, "abort", false, "abort and restore the original branch")
	return cmd
}

func reportRebase(r *repo.Repo, out io.Writer, result *repo.RebaseResult) error {
	if result.Completed {
		if err := materializeHead(r); err != nil {
			return err
		}
		fmt.Fprintf(out, "Rebase complete; HEAD is now %s\n", shortHash(string(result.NewHead)))
		return nil
	}
	printConflicts(out, result.Conflicts)
	return fmt.Errorf(
		"rebase stopped while replaying %s; resolve the conflicts and run 'strata rebase --continue'",
		shortHash(string(result.ConflictCommit)),
	)
}

// readConflictResolutions collects resolved file content for every path
// the suspended rebase reported as conflicted, reading from the working
// directory. Removing a conflicted file accepts its deletion.
func readConflictResolutions(r *repo.Repo) (map[string][]byte, error) {
	paths, err := r.RebaseConflictPaths()
	if err != nil {
		return nil, err
	}

	resolutions := make(map[string][]byte, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(p)))
		if err != nil {
			if os.IsNotExist(err) {
				resolutions[p] = nil
				continue
			}
			return nil, fmt.Errorf("read resolution %q: %w", p, err)
		}
		resolutions[p] = data
	}
	return resolutions, nil
}

// materializeHead syncs the working directory to HEAD's tree.
func materializeHead(r *repo.Repo) error {
	head, err := r.ResolveCommit("HEAD")
	if err != nil {
		return err
	}
	commit, err := r.Store.ReadCommit(head)
	if err != nil {
		return err
	}
	return worktree.Materialize(r, commit.TreeHash, "")
}
