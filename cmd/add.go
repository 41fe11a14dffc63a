package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/service"
)

func NewAddCmd(opts *service.Options) *cobra.Command {
	var (
		parentRef string
		syntax    string
		tags      string
		text      string
		readOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "add <document> <name>",
		Short: "Add a node",
		Long: `Add a node as the last child of --parent, or at the top level.

Examples:
  tn add notes.ctb "Ideas"
  tn add notes.ctb "main.go" --parent Ideas --syntax go --text - < main.go`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(cmd, text)
			if err != nil {
				return err
			}
			return editDocument(cmd, opts, args[0], func(ctrl *service.Control) error {
				t := ctrl.Tree()
				parent, err := resolveParent(t, parentRef)
				if err != nil {
					return err
				}
				props := models.NodeProperties{Name: args[1], Syntax: syntax, Tags: tags, ReadOnly: readOnly}
				var content *models.Content
				if body != "" {
					content = models.PlainContent(body)
				}
				n, err := t.AppendNode(parent, props, content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n.ID())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&parentRef, "parent", "", "Parent node id or name")
	cmd.Flags().StringVar(&syntax, "syntax", models.SyntaxRichText, "custom-colors, plain-text or a source language")
	cmd.Flags().StringVar(&tags, "tags", "", "Space separated tags")
	cmd.Flags().StringVar(&text, "text", "", "Node text, - reads stdin")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Mark the node read-only")

	return cmd
}
