package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var annotate bool
	var message string
	var force bool
	var deleteName string

	cmd := &cobra.Command{
		Use:   "tag [name] [target]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if deleteName != "" {
				if err := r.DeleteTag(deleteName); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted tag %s\n", deleteName)
				return nil
			}

			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintln(out, t)
				}
				return nil
			}

			targetRef := "HEAD"
			if len(args) == 2 {
				targetRef = args[1]
			}
			target, err := r.ResolveCommit(targetRef)
			if err != nil {
				return err
			}

			if annotate {
				tagger := resolveAuthor(r)
				tagHash, err := r.CreateAnnotatedTag(args[0], target, tagger, message, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Created annotated tag %s (%s)\n", args[0], shortHash(string(tagHash)))
				return nil
			}

			if err := r.CreateTag(args[0], target, force); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created tag %s at %s\n", args[0], shortHash(string(target)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&annotate, "annotate", "a", false, "create an annotated tag object")
	cmd.Flags().StringVarP(&message, "message", "m", "", "annotation message")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")
	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named tag")
	return cmd
}
