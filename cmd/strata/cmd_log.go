package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var limit int
	var oneline bool

	cmd := &cobra.Command{
		Use:   "log [ref]",
		Short: "Show commit history (first-parent)",
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
			start, err := r.ResolveCommit(ref)
			if err != nil {
				return err
			}

			entries, err := r.Log(start, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				firstLine := e.Commit.Message
				if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
					firstLine = firstLine[:idx]
				}
				if oneline {
					fmt.Fprintf(out, "%s %s\n", shortHash(string(e.Hash)), firstLine)
					continue
				}
				fmt.Fprintf(out, "commit %s\n", e.Hash)
				fmt.Fprintf(out, "Author: %s\n", e.Commit.Author)
				fmt.Fprintf(out, "Date:   %s\n", time.Unix(e.Commit.Timestamp, 0).Format(time.RFC1123))
				if e.Commit.Signature != "" {
					fmt.Fprintln(out, "Signed: yes")
				}
				fmt.Fprintf(out, "\n    %s\n\n", strings.ReplaceAll(strings.TrimRight(e.Commit.Message, "\n"), "\n", "\n    "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits (0 = all)")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	return cmd
}
