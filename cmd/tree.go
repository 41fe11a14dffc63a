package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/service"
	"github.com/grovetools/treenote/pkg/tree"
)

type treeEntry struct {
	models.NodeRecord `yaml:",inline"`
	Bookmarked        bool        `json:"bookmarked,omitempty" yaml:"bookmarked,omitempty"`
	Children          []treeEntry `json:"children,omitempty" yaml:"children,omitempty"`
}

func entries(t *tree.Tree, nodes []*tree.Node) []treeEntry {
	out := make([]treeEntry, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, treeEntry{
			NodeRecord: n.Record(),
			Bookmarked: t.IsBookmarked(n.ID()),
			Children:   entries(t, n.Children()),
		})
	}
	return out
}

func NewTreeCmd(opts *service.Options) *cobra.Command {
	var (
		jsonOutput bool
		yamlOutput bool
		match      string
	)

	cmd := &cobra.Command{
		Use:     "tree <document>",
		Aliases: []string{"ls"},
		Short:   "Show the node tree",
		Long: `Show the node tree. Bookmarked nodes are marked with *.

Examples:
  tn tree notes.ctb
  tn tree notes.ctb --match "*draft*"
  tn tree notes.ctd --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := openDocument(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			t := ctrl.Tree()
			nodes := t.Roots()
			if match != "" {
				if nodes, err = t.FindByPattern(match); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()

			switch {
			case jsonOutput:
				data := entries(t, nodes)
				if match != "" {
					data = flatEntries(t, nodes)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(data)
			case yamlOutput:
				data := entries(t, nodes)
				if match != "" {
					data = flatEntries(t, nodes)
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(data)
			case match != "":
				return printMatches(out, nodes)
			}

			if len(nodes) == 0 {
				fmt.Fprintln(out, "Document is empty")
				return nil
			}
			return t.Walk(func(n *tree.Node) error {
				mark := " "
				if t.IsBookmarked(n.ID()) {
					mark = "*"
				}
				line := fmt.Sprintf("%s%s [%d] %s", strings.Repeat("  ", n.Depth()), mark, n.ID(), n.Name())
				if tags := n.Properties().Tags; tags != "" {
					line += "  #" + strings.Join(n.Properties().TagList(), " #")
				}
				_, err := fmt.Fprintln(out, line)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&yamlOutput, "yaml", false, "Output as YAML")
	cmd.Flags().StringVar(&match, "match", "", "Only list nodes whose name matches a glob pattern")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	return cmd
}

func flatEntries(t *tree.Tree, nodes []*tree.Node) []treeEntry {
	out := make([]treeEntry, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, treeEntry{NodeRecord: n.Record(), Bookmarked: t.IsBookmarked(n.ID())})
	}
	return out
}

func printMatches(out io.Writer, nodes []*tree.Node) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPATH\tSYNTAX")
	for _, n := range nodes {
		fmt.Fprintf(w, "%d\t%s\t%s\n", n.ID(), nodePath(n), n.Properties().Syntax)
	}
	return w.Flush()
}

func nodePath(n *tree.Node) string {
	var parts []string
	for p := n; p != nil; p = p.Parent() {
		parts = append([]string{p.Name()}, parts...)
	}
	return strings.Join(parts, " / ")
}
