package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/service"
)

func NewBookmarkCmd(opts *service.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmark",
		Aliases: []string{"bm"},
		Short:   "Manage bookmarks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <document> <node>",
		Short: "Bookmark a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editDocument(cmd, opts, args[0], func(ctrl *service.Control) error {
				n, err := resolveNode(ctrl.Tree(), args[1])
				if err != nil {
					return err
				}
				return ctrl.Tree().AddBookmark(n.ID())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <document> <node>",
		Short: "Remove a bookmark",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editDocument(cmd, opts, args[0], func(ctrl *service.Control) error {
				n, err := resolveNode(ctrl.Tree(), args[1])
				if err != nil {
					return err
				}
				if !ctrl.Tree().RemoveBookmark(n.ID()) {
					return fmt.Errorf("node %d is not bookmarked", n.ID())
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ls <document>",
		Short: "List bookmarks in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := openDocument(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			out := cmd.OutOrStdout()
			for _, id := range ctrl.Tree().Bookmarks() {
				n, err := ctrl.Tree().MustGet(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "[%d] %s\n", id, nodePath(n))
			}
			return nil
		},
	})

	return cmd
}
