package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/service"
)

func NewCheckCmd(opts *service.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <document>",
		Short: "Run the database integrity check",
		Long: `Run the integrity check of a SQLite document. A document with issues
can be read but is not written unless integrity.allow_corrupt_writes is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := openDocument(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			issues := ctrl.IntegrityIssues()
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintln(out, "ok")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintln(out, issue)
			}
			return fmt.Errorf("%s: %w (%d issues)", args[0], service.ErrIntegrity, len(issues))
		},
	}
	return cmd
}
