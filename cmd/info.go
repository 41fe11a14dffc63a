package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/service"
)

type documentInfo struct {
	Path            string          `json:"path"`
	Format          string          `json:"format"`
	Encrypted       bool            `json:"encrypted"`
	Nodes           int             `json:"nodes"`
	Summary         models.Summary  `json:"summary"`
	Bookmarks       []models.NodeID `json:"bookmarks"`
	Tags            []string        `json:"tags"`
	IntegrityIssues []string        `json:"integrity_issues,omitempty"`
}

func NewInfoCmd(opts *service.Options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <document>",
		Short: "Summarize a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := openDocument(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			t := ctrl.Tree()
			summary, err := t.Summary()
			if err != nil {
				return err
			}
			info := documentInfo{
				Path:            ctrl.Path(),
				Format:          ctrl.DocType().String(),
				Encrypted:       ctrl.Encrypted(),
				Nodes:           summary.Nodes(),
				Summary:         summary,
				Bookmarks:       t.Bookmarks(),
				Tags:            t.UsedTags(),
				IntegrityIssues: ctrl.IntegrityIssues(),
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Path:\t%s\n", info.Path)
			fmt.Fprintf(w, "Format:\t%s\n", describe(ctrl))
			fmt.Fprintf(w, "Nodes:\t%d (rich text %d, plain text %d, code %d)\n",
				info.Nodes, summary.RichTextNodes, summary.PlainTextNodes, summary.CodeNodes)
			fmt.Fprintf(w, "Images:\t%d\n", summary.Images)
			fmt.Fprintf(w, "Embedded files:\t%d\n", summary.EmbeddedFiles)
			fmt.Fprintf(w, "Anchors:\t%d\n", summary.Anchors)
			fmt.Fprintf(w, "Code boxes:\t%d\n", summary.CodeBoxes)
			fmt.Fprintf(w, "Tables:\t%d\n", summary.Tables)
			fmt.Fprintf(w, "Bookmarks:\t%d\n", len(info.Bookmarks))
			fmt.Fprintf(w, "Tags:\t%d\n", len(info.Tags))
			if len(info.IntegrityIssues) > 0 {
				fmt.Fprintf(w, "Integrity issues:\t%d (run 'tn check')\n", len(info.IntegrityIssues))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
