package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/stratavcs/strata/pkg/worktree"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string
	var author string
	var sign bool
	var signingKey string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record the working directory as a new commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if author == "" {
				author = resolveAuthor(r)
			}

			var signer repo.CommitSigner
			if sign {
				s, keyPath, err := newSSHCommitSigner(signingKey)
				if err != nil {
					return err
				}
				signer = s
				fmt.Fprintf(cmd.OutOrStdout(), "signing with %s\n", keyPath)
			}

			treeHash, err := worktree.Capture(r)
			if err != nil {
				return err
			}

			h, err := r.CommitToHead(treeHash, author, message, signer)
			if err != nil {
				return err
			}

			branch := "HEAD"
			if head, err := r.Head(); err == nil && strings.HasPrefix(head, "refs/heads/") {
				branch = strings.TrimPrefix(head, "refs/heads/")
			}

			firstLine := message
			if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
				firstLine = firstLine[:idx]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, shortHash(string(h)), firstLine)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "author name (default: config user.name, then $USER)")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "path to SSH private key (default: ~/.ssh/id_*)")
	return cmd
}

func resolveAuthor(r *repo.Repo) string {
	if cfg, err := r.ReadConfig(); err == nil && strings.TrimSpace(cfg.User.Name) != "" {
		return cfg.User.Name
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
