package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/service"
	"github.com/grovetools/treenote/pkg/tree"
)

func NewMvCmd(opts *service.Options) *cobra.Command {
	var (
		parentRef string
		index     int
		sortKids  bool
	)

	cmd := &cobra.Command{
		Use:   "mv <document> <node>",
		Short: "Move a node",
		Long: `Move a node under --parent (the top level when omitted) at --index among
its new siblings. --sort orders the node's children by name instead.

Examples:
  tn mv notes.ctb 7 --parent Archive
  tn mv notes.ctb 7 --index 0
  tn mv notes.ctb Archive --sort`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editDocument(cmd, opts, args[0], func(ctrl *service.Control) error {
				t := ctrl.Tree()
				n, err := resolveNode(t, args[1])
				if err != nil {
					return err
				}
				if sortKids {
					t.SortChildren(n, func(a, b *tree.Node) bool { return a.Name() < b.Name() })
					return nil
				}
				parent, err := resolveParent(t, parentRef)
				if err != nil {
					return err
				}
				if err := t.MoveNode(n, parent, index); err != nil {
					return fmt.Errorf("move %s: %w", nodePath(n), err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), nodePath(n))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&parentRef, "parent", "", "New parent node id or name")
	cmd.Flags().IntVar(&index, "index", -1, "Position among the new siblings, -1 appends")
	cmd.Flags().BoolVar(&sortKids, "sort", false, "Sort the children of the node by name")
	cmd.MarkFlagsMutuallyExclusive("sort", "parent")

	return cmd
}
