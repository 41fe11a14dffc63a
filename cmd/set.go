package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/service"
	"github.com/grovetools/treenote/pkg/tree"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func NewSetCmd(opts *service.Options) *cobra.Command {
	var (
		name       string
		tags       string
		syntax     string
		foreground string
		text       string
		readOnly   bool
		bold       bool
	)

	cmd := &cobra.Command{
		Use:   "set <document> <node>",
		Short: "Change node properties or text",
		Long: `Change the properties or the text of a node. Only the given flags are
applied and only the changed node is written back.

Examples:
  tn set notes.ctb 4 --name "Done"
  tn set notes.ctb Ideas --tags "draft go" --bold
  tn set notes.ctb 4 --text - < body.txt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if foreground != "" && !colorPattern.MatchString(foreground) {
				return fmt.Errorf("foreground must look like #rrggbb, got %q", foreground)
			}
			var body string
			if flags.Changed("text") {
				var err error
				if body, err = readBody(cmd, text); err != nil {
					return err
				}
			}

			return editDocument(cmd, opts, args[0], func(ctrl *service.Control) error {
				t := ctrl.Tree()
				n, err := resolveNode(t, args[1])
				if err != nil {
					return err
				}

				props := n.Properties()
				if flags.Changed("name") {
					props.Name = name
				}
				if flags.Changed("tags") {
					props.Tags = tags
				}
				if flags.Changed("syntax") {
					props.Syntax = syntax
				}
				if flags.Changed("foreground") {
					props.Foreground = foreground
				}
				if flags.Changed("read-only") {
					props.ReadOnly = readOnly
				}
				if flags.Changed("bold") {
					props.Bold = bold
				}
				if props != n.Properties() {
					t.SetProperties(n, props)
				}

				if flags.Changed("text") {
					content, err := textContent(n, body)
					if err != nil {
						return err
					}
					t.SetContent(n, content)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New node name")
	cmd.Flags().StringVar(&tags, "tags", "", "Space separated tags")
	cmd.Flags().StringVar(&syntax, "syntax", "", "custom-colors, plain-text or a source language")
	cmd.Flags().StringVar(&foreground, "foreground", "", "Name color as #rrggbb, empty to reset")
	cmd.Flags().StringVar(&text, "text", "", "Replace the node text, - reads stdin")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Mark the node read-only")
	cmd.Flags().BoolVar(&bold, "bold", false, "Show the node name in bold")

	return cmd
}

// textContent replaces the whole content, anchored objects included.
func textContent(n *tree.Node, body string) (*models.Content, error) {
	if n.Properties().ReadOnly {
		return nil, fmt.Errorf("node %d is read-only", n.ID())
	}
	return models.PlainContent(body), nil
}
