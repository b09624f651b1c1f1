package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newBisectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bisect",
		Short: "Binary-search the first bad commit",
	}
	cmd.AddCommand(newBisectStartCmd())
	cmd.AddCommand(newBisectMarkCmd("good"))
	cmd.AddCommand(newBisectMarkCmd("bad"))
	cmd.AddCommand(newBisectResetCmd())
	return cmd
}

func newBisectStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <good> <bad>",
		Short: "Begin a bisection between a good and a bad commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			good, err := r.ResolveCommit(args[0])
			if err != nil {
				return err
			}
			bad, err := r.ResolveCommit(args[1])
			if err != nil {
				return err
			}

			b, err := r.StartBisect(good, bad)
			if err != nil {
				return err
			}
			return printBisectStep(cmd, b)
		},
	}
}

func newBisectMarkCmd(verdict string) *cobra.Command {
	return &cobra.Command{
		Use:   verdict + " [commit]",
		Short: "Mark a commit as " + verdict + " (default: the current midpoint)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			b, err := r.LoadBisect()
			if err != nil {
				return err
			}

			target, done := b.Next()
			if len(args) == 1 {
				target, err = r.ResolveCommit(args[0])
				if err != nil {
					return err
				}
			} else if done {
				return fmt.Errorf("bisect: nothing left to mark")
			}

			if err := b.Mark(target, repo.BisectVerdict(verdict)); err != nil {
				return err
			}
			return printBisectStep(cmd, b)
		},
	}
}

func newBisectResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "End the bisection session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := r.ResetBisect(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Bisect session cleared.")
			return nil
		},
	}
}

func printBisectStep(cmd *cobra.Command, b *repo.Bisection) error {
	out := cmd.OutOrStdout()
	next, done := b.Next()
	if done {
		first, err := b.FirstBad()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is the first bad commit\n", first)
		return nil
	}
	fmt.Fprintf(out, "Testing %s (%d candidate(s) remain)\n", shortHash(string(next)), b.Remaining())
	return nil
}
