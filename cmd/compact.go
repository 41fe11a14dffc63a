package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/service"
)

func NewCompactCmd(opts *service.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "compact <document>",
		Short: "Save a document and reclaim unused space",
		Long: `Save a document with the usual backup rotation and vacuum the SQLite
database afterwards. XML documents are simply rewritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := openDocument(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.Save(commandContext(cmd), true); err != nil {
				return fmt.Errorf("compact %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
