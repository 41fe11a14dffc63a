package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/service"
)

func NewNewCmd(opts *service.Options) *cobra.Command {
	var (
		rootName string
		syntax   string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "new <document>",
		Short: "Create a new document",
		Long: `Create a new document. The extension picks the format:

  .ctb  single-file SQLite database
  .ctx  encrypted SQLite database
  .ctd  XML document
  .ctz  encrypted XML document

Examples:
  tn new notes.ctb
  tn new --root "Inbox" notes.ctd
  tn new -p hunter2 secret.ctz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			password, err := newPassword(cmd, opts, path)
			if err != nil {
				return err
			}

			ctrl := service.New(*opts)
			defer ctrl.Close()
			if rootName != "" {
				props := models.NodeProperties{Name: rootName, Syntax: syntax}
				if _, err := ctrl.Tree().AppendNode(nil, props, nil); err != nil {
					return err
				}
			}
			if err := ctrl.SaveAs(commandContext(cmd), path, password); err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", path, describe(ctrl))
			return nil
		},
	}

	cmd.Flags().StringVar(&rootName, "root", "", "Name of a first top level node")
	cmd.Flags().StringVar(&syntax, "syntax", models.SyntaxRichText, "Syntax of the first node")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func describe(ctrl *service.Control) string {
	s := ctrl.DocType().String()
	if ctrl.Encrypted() {
		s += ", encrypted"
	}
	return s
}

func readBody(cmd *cobra.Command, text string) (string, error) {
	if text != "-" {
		return text, nil
	}
	in := cmd.InOrStdin()
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
