package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/service"
)

type confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

func NewRmCmd(opts *service.Options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <document> <node>",
		Short: "Delete a node and its subtree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editDocument(cmd, opts, args[0], func(ctrl *service.Control) error {
				t := ctrl.Tree()
				n, err := resolveNode(t, args[1])
				if err != nil {
					return err
				}

				if kids := len(n.Children()); kids > 0 && !yes {
					c, ok := opts.Prompter.(confirmer)
					if !ok {
						return fmt.Errorf("node %d has %d children, use --yes to delete them too", n.ID(), kids)
					}
					q := fmt.Sprintf("Delete %q and its %d children?", n.Name(), kids)
					confirmed, err := c.Confirm(commandContext(cmd), q)
					if err != nil {
						return err
					}
					if !confirmed {
						return errors.New("aborted")
					}
				}

				path := nodePath(n)
				t.DeleteNode(n)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask before deleting children")

	return cmd
}
