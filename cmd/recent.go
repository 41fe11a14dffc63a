package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/cmd/config"
)

func NewRecentCmd() *cobra.Command {
	var (
		jsonOutput bool
		forget     string
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened documents",
		Long: `List the documents opened lately, most recent first, with the node
last printed by 'tn cat'. The list lives in data_dir and keeps recent.limit
entries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := config.OpenRecent()
			if err != nil {
				return fmt.Errorf("open recent documents: %w", err)
			}
			if reg == nil {
				return fmt.Errorf("the recent documents list is disabled")
			}
			defer reg.Close()

			if forget != "" {
				return reg.Remove(abs(forget))
			}

			docs, err := reg.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LAST USED\tFORMAT\tNODE\tPATH")
			for _, d := range docs {
				format := d.Format
				if d.Encrypted {
					format += "+enc"
				}
				node := "-"
				if d.LastNode != 0 {
					node = fmt.Sprint(d.LastNode)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.LastUsed.Format(time.DateTime), format, node, d.Path)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&forget, "forget", "", "Remove a document from the list")

	return cmd
}
