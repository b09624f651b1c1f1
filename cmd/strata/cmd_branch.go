package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	var deleteName string

	cmd := &cobra.Command{
		Use:   "branch [name] [start-point]",
		Short: "List, create, or delete branches",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if deleteName != "" {
				if err := r.DeleteBranch(deleteName); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted branch %s\n", deleteName)
				return nil
			}

			if len(args) == 0 {
				branches, err := r.ListBranches()
				if err != nil {
					return err
				}
				current, _ := r.CurrentBranch()
				for _, b := range branches {
					marker := "  "
					if b == current {
						marker = "* "
					}
					fmt.Fprintf(out, "%s%s\n", marker, b)
				}
				return nil
			}

			start := "HEAD"
			if len(args) == 2 {
				start = args[1]
			}
			target, err := r.ResolveCommit(start)
			if err != nil {
				return err
			}
			if err := r.CreateBranch(args[0], target); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created branch %s at %s\n", args[0], shortHash(string(target)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named branch")
	return cmd
}
