package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var signatures bool

	cmd := &cobra.Command{
		Use:   "verify [commit]",
		Short: "Verify object integrity, or a commit signature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if signatures || len(args) == 1 {
				ref := "HEAD"
				if len(args) == 1 {
					ref = args[0]
				}
				h, err := r.ResolveCommit(ref)
				if err != nil {
					return err
				}
				commit, err := r.Store.ReadCommit(h)
				if err != nil {
					return err
				}
				keyType, err := verifyCommitSignature(commit)
				if err != nil {
					return fmt.Errorf("verify %s: %w", shortHash(string(h)), err)
				}
				fmt.Fprintf(out, "ok: %s signed with %s key\n", shortHash(string(h)), keyType)
				return nil
			}

			report, err := r.Store.Verify()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ok: verified %d loose object(s)\n", report.LooseObjects)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&signatures, "signature", "s", false, "verify the commit signature instead of store integrity")
	return cmd
}
