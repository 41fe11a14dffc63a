package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/service"
)

func NewConvertCmd(opts *service.Options) *cobra.Command {
	var newPass string

	cmd := &cobra.Command{
		Use:   "convert <document> <target>",
		Short: "Save a document under a new name or format",
		Long: `Write a full copy of a document. The target extension picks the format,
so this converts between SQLite and XML and adds or drops encryption.

Examples:
  tn convert notes.ctd notes.ctb
  tn convert notes.ctb notes.ctx --new-password hunter2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			if abs(src) == abs(dst) {
				return fmt.Errorf("target must differ from %s", src)
			}

			ctrl, err := openDocument(cmd, opts, src)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			password := newPass
			if password == "" {
				if password, err = newPassword(cmd, opts, dst); err != nil {
					return err
				}
			}
			if err := ctrl.SaveAs(commandContext(cmd), dst, password); err != nil {
				return fmt.Errorf("convert to %s: %w", dst, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", dst, describe(ctrl))
			return nil
		},
	}

	cmd.Flags().StringVar(&newPass, "new-password", "", "Password of an encrypted target")

	return cmd
}

func abs(path string) string {
	if p, err := filepath.Abs(path); err == nil {
		return p
	}
	return path
}
