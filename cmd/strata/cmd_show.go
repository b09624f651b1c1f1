package main

import (
	"fmt"

	"github.com/stratavcs/strata/pkg/object"
	"github.com/stratavcs/strata/pkg/repo"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var typeOnly bool

	cmd := &cobra.Command{
		Use:   "show <ref-or-hash>",
		Short: "Print an object from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			h, err := r.ResolveRef(args[0])
			if err != nil {
				if len(args[0]) == 64 && r.Store.Has(object.Hash(args[0])) {
					h = object.Hash(args[0])
				} else {
					return err
				}
			}

			objType, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if typeOnly {
				fmt.Fprintln(out, objType)
				return nil
			}
			out.Write(data)
			if len(data) > 0 && data[len(data)-1] != '\n' {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&typeOnly, "type", "t", false, "print the object type instead of its content")
	return cmd
}
