package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/frontmatter"
	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/service"
	"github.com/grovetools/treenote/pkg/tree"
)

func NewCatCmd(opts *service.Options) *cobra.Command {
	var withFrontmatter bool

	cmd := &cobra.Command{
		Use:   "cat <document> <node>",
		Short: "Print the text of a node",
		Long: `Print the text of a node. Formatting and anchored objects are left out.

Examples:
  tn cat notes.ctb 12
  tn cat notes.ctb "Ideas" --frontmatter > ideas.md`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := openDocument(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			n, err := resolveNode(ctrl.Tree(), args[1])
			if err != nil {
				return err
			}
			rememberDocument(opts, ctrl, n.ID())
			content, err := n.Content()
			if err != nil {
				return err
			}

			text := content.Text()
			if withFrontmatter {
				text = frontmatter.BuildContent(nodeFrontmatter(n), text)
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			if text != "" && text[len(text)-1] != '\n' {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withFrontmatter, "frontmatter", false, "Prefix the node properties as YAML frontmatter")

	return cmd
}

func nodeFrontmatter(n *tree.Node) *frontmatter.Frontmatter {
	props := n.Properties()
	fm := &frontmatter.Frontmatter{
		ID:       int64(n.ID()),
		Title:    props.Name,
		Tags:     props.TagList(),
		ReadOnly: props.ReadOnly,
		Created:  frontmatter.FormatTimestamp(props.CreatedAt),
		Modified: frontmatter.FormatTimestamp(props.ModifiedAt),
	}
	if props.Syntax != models.SyntaxRichText {
		fm.Syntax = props.Syntax
	}
	return fm
}
