package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/search"
	"github.com/grovetools/treenote/pkg/service"
)

func NewSearchCmd(opts *service.Options) *cobra.Command {
	var (
		tag        string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <document> <query>...",
		Short: "Find nodes containing every word of a query",
		Long: `Search node names, tags and text. Nodes marked as excluded from search,
and the children of nodes whose children are excluded, are skipped.

Examples:
  tn search notes.ctb flour eggs
  tn search notes.ctb --tag draft plan`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := openDocument(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			idx, err := search.NewIndex()
			if err != nil {
				return fmt.Errorf("create search index: %w", err)
			}
			defer idx.Close()
			if _, err := idx.IndexTree(ctrl.Tree()); err != nil {
				return fmt.Errorf("index %s: %w", args[0], err)
			}

			hits, err := idx.Search(strings.Join(args[1:], " "), &search.Options{Tag: tag, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(hits)
			}
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matches")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, h := range hits {
				path := h.Name
				if n, ok := ctrl.Tree().Get(h.ID); ok {
					path = nodePath(n)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", h.ID, path, h.Snippet)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Only nodes with this tag")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
