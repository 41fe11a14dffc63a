package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/service"
)

func NewImportCmd(opts *service.Options) *cobra.Command {
	var (
		parentRef      string
		sourcePassword string
	)

	cmd := &cobra.Command{
		Use:   "import <document> <source>...",
		Short: "Import documents or markdown pages",
		Long: `Import the nodes of other documents, or markdown pages as single nodes.
Imported nodes always get new ids, links between them are rewritten.

Examples:
  tn import notes.ctb old.ctd
  tn import notes.ctb docs/*.md --parent Docs`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return editDocument(cmd, opts, args[0], func(ctrl *service.Control) error {
				parent, err := resolveParent(ctrl.Tree(), parentRef)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, src := range args[1:] {
					switch strings.ToLower(filepath.Ext(src)) {
					case ".md", ".markdown":
						n, err := ctrl.ImportMarkdown(ctx, src, parent)
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "%s -> [%d] %s\n", src, n.ID(), n.Name())
					default:
						nodes, err := ctrl.ImportNodes(ctx, src, sourcePassword, parent)
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "%s -> %d top level nodes\n", src, len(nodes))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&parentRef, "parent", "", "Node to import under, top level when omitted")
	cmd.Flags().StringVar(&sourcePassword, "source-password", "", "Password of encrypted source documents")

	return cmd
}
